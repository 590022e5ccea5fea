package social

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/classiccounter/gcserver/internal/domain"
	"github.com/classiccounter/gcserver/internal/gcerr"
)

// ReportRequest carries the sender's flagged types for a target, plus
// the match the report pertains to (0 if none).
type ReportRequest struct {
	Target  uint64
	Types   []domain.ReportType
	MatchID uint64
}

// ReportResult mirrors GC2CL_ClientReportResponse's result field.
type ReportResult int

const (
	ReportOK ReportResult = iota
	ReportNoTokens
	ReportAlreadyReported
)

type ReportResponse struct {
	Result ReportResult
	Tokens int
}

// Report applies a report request. Tokens are checked before the
// already-reported cooldown; on any successful insert, the token count
// in the response is decremented by exactly one regardless of how many
// types were flagged, and a ReportData is enqueued for the moderation
// fan-out per inserted type.
func (s *Service) Report(ctx context.Context, sender uint64, req ReportRequest) (ReportResponse, error) {
	tokens, err := s.repo.GetReportTokens(ctx, sender)
	if err != nil {
		return ReportResponse{}, fmt.Errorf("report: token lookup: %w", err)
	}
	if tokens <= 0 {
		return ReportResponse{Result: ReportNoTokens, Tokens: 0}, nil
	}

	count, err := s.repo.CountReports(ctx, sender, req.Target, reportWindow)
	if err != nil {
		return ReportResponse{}, fmt.Errorf("report: cooldown check: %w", err)
	}
	if count > 0 {
		return ReportResponse{Result: ReportAlreadyReported, Tokens: tokens}, gcerr.ErrAlreadyReported
	}

	inserted := false
	if err := s.repo.InsertReport(ctx, sender, req.Target, req.Types, req.MatchID); err != nil {
		s.log.Warn("report insert failed",
			zap.Uint64("sender", sender), zap.Uint64("target", req.Target),
			zap.Int("type_count", len(req.Types)), zap.Error(err),
		)
	} else {
		inserted = true
		if s.moderation != nil {
			for _, typ := range req.Types {
				s.moderation.Enqueue(domain.ReportData{
					SenderSteamID:   sender,
					ReceiverSteamID: req.Target,
					ReportType:      typ,
					MatchID:         req.MatchID,
				})
			}
		}
	}

	remaining := tokens
	if inserted {
		remaining--
	}
	if remaining < 0 {
		remaining = 0
	}
	return ReportResponse{Result: ReportOK, Tokens: remaining}, nil
}
