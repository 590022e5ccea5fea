package moderation

import (
	"fmt"
	"strings"
	"time"

	"github.com/classiccounter/gcserver/internal/domain"
	"github.com/classiccounter/gcserver/internal/steamid"
)

const maxRecentReports = 5

// embedColor is the fixed "red" color discord_notifier.cpp uses for
// report alerts.
const embedColor = 16728132

// webhookPayload is the Discord webhook request body, built with
// encoding/json rather than the original's hand-built JSON string.
type webhookPayload struct {
	Embeds  []embed `json:"embeds"`
	Content string  `json:"content,omitempty"`
}

type embed struct {
	Title     string        `json:"title"`
	Color     int           `json:"color"`
	Fields    []embedField  `json:"fields"`
	Footer    embedFooter   `json:"footer"`
	Timestamp string        `json:"timestamp"`
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type embedFooter struct {
	Text string `json:"text"`
}

// buildPayload assembles the webhook body for one receiver's batch of
// reports, matching discord_notifier.cpp's BuildEmbedJSON field layout
// exactly.
func buildPayload(receiver uint64, receiverName string, reports []domain.ReportData, roleID string) webhookPayload {
	typeCounts := make(map[domain.ReportType]int)
	uniqueReporters := make(map[uint64]struct{})
	for _, r := range reports {
		typeCounts[r.ReportType]++
		uniqueReporters[r.SenderSteamID] = struct{}{}
	}

	var summary strings.Builder
	for _, t := range []domain.ReportType{
		domain.ReportAimbot, domain.ReportWallhack, domain.ReportSpeedhackOther,
		domain.ReportGriefing, domain.ReportTextAbuse, domain.ReportVoiceAbuse,
	} {
		if n := typeCounts[t]; n > 0 {
			fmt.Fprintf(&summary, "%s %s × %d\n", reportTypeEmoji(t), reportTypeName(t), n)
		}
	}

	var recent strings.Builder
	displayCount := len(reports)
	if displayCount > maxRecentReports {
		displayCount = maxRecentReports
	}
	for i := 0; i < displayCount; i++ {
		r := reports[i]
		fmt.Fprintf(&recent, "%s %s by %s", reportTypeEmoji(r.ReportType), reportTypeName(r.ReportType), steamid.ID3(r.SenderSteamID))
		if r.SenderName != "" {
			fmt.Fprintf(&recent, " (%s)", r.SenderName)
		}
		recent.WriteString("\n")
	}
	if len(reports) > displayCount {
		fmt.Fprintf(&recent, "... and %d more report(s)", len(reports)-displayCount)
	}

	playerValue := steamid.ID3(receiver)
	if receiverName != "" {
		playerValue += " (" + receiverName + ")"
	}
	playerValue += fmt.Sprintf("\n[Profile](%s)", steamid.ProfileURL(receiver))

	payload := webhookPayload{
		Embeds: []embed{{
			Title: "🚨 New Player Report(s)",
			Color: embedColor,
			Fields: []embedField{
				{Name: "👤 Reported Player", Value: playerValue, Inline: false},
				{Name: "📊 Report Summary", Value: summary.String(), Inline: true},
				{
					Name:   "📈 Statistics",
					Value:  fmt.Sprintf("**Total Reports:** %d\n**Unique Reporters:** %d", len(reports), len(uniqueReporters)),
					Inline: true,
				},
				{Name: "📝 Recent Reports", Value: recent.String(), Inline: false},
			},
			Footer:    embedFooter{Text: "ClassicCounter Report System"},
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}},
	}
	if roleID != "" {
		payload.Content = fmt.Sprintf("<@&%s> New player report(s) received!", roleID)
	}
	return payload
}
