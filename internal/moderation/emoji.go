package moderation

import "github.com/classiccounter/gcserver/internal/domain"

// reportTypeMeta is the emoji/label table for the six report types,
// grounded on discord_notifier.cpp's REPORT_TYPES map.
var reportTypeMeta = map[domain.ReportType]struct {
	Emoji string
	Label string
}{
	domain.ReportAimbot:         {"🎯", "Aimbot"},
	domain.ReportWallhack:       {"👻", "Wallhack"},
	domain.ReportSpeedhackOther: {"⚡", "Speedhack/Other Hack"},
	domain.ReportGriefing:       {"🔥", "Griefing/Team Harm"},
	domain.ReportTextAbuse:      {"💬", "Abusive Text Chat"},
	domain.ReportVoiceAbuse:     {"🔊", "Abusive Voice Chat"},
}

func reportTypeEmoji(t domain.ReportType) string {
	if m, ok := reportTypeMeta[t]; ok {
		return m.Emoji
	}
	return "❓"
}

func reportTypeName(t domain.ReportType) string {
	if m, ok := reportTypeMeta[t]; ok {
		return m.Label
	}
	return "Unknown"
}
