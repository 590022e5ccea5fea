package social

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/classiccounter/gcserver/internal/domain"
)

// CommendRequest carries the sender's desired tri-state flags for a
// target; each bool is the desired end state, not a delta.
type CommendRequest struct {
	Target   uint64
	Friendly bool
	Teaching bool
	Leader   bool
}

// Commend applies a commend request. A token is required only when
// the request adds a new type AND no prior
// commendation from sender to target existed in the 3-month window. If
// a token is required and none is available, the request is rejected
// silently (no error, no response frame — the caller simply returns).
func (s *Service) Commend(ctx context.Context, sender uint64, req CommendRequest) error {
	existing, err := s.repo.ListCommends(ctx, sender, req.Target, commendWindow)
	if err != nil {
		return fmt.Errorf("commend: list existing: %w", err)
	}

	hadAny := existing.Friendly || existing.Teaching || existing.Leader
	adds, removes := commendDeltas(existing, req)

	if len(adds) > 0 && !hadAny {
		tokens, err := s.repo.GetCommendTokens(ctx, sender)
		if err != nil {
			return fmt.Errorf("commend: token lookup: %w", err)
		}
		if tokens <= 0 {
			s.log.Info("commend rejected, no tokens", zap.Uint64("sender", sender), zap.Uint64("target", req.Target))
			return nil
		}
	}

	for _, typ := range removes {
		if err := s.repo.DeleteCommend(ctx, sender, req.Target, typ); err != nil {
			s.log.Warn("commend delete failed", zap.Uint64("sender", sender), zap.Uint64("target", req.Target), zap.Error(err))
		}
	}
	for _, typ := range adds {
		if err := s.repo.InsertCommend(ctx, sender, req.Target, typ); err != nil {
			s.log.Warn("commend insert failed", zap.Uint64("sender", sender), zap.Uint64("target", req.Target), zap.Error(err))
		}
	}

	s.log.Info("commend applied",
		zap.Uint64("sender", sender), zap.Uint64("target", req.Target),
		zap.Int("added", len(adds)), zap.Int("removed", len(removes)),
	)
	return nil
}

// commendDeltas computes which types need inserting and which need
// deleting to move existing to the state requested by req.
func commendDeltas(existing domain.CommendFlags, req CommendRequest) (adds, removes []domain.CommendType) {
	type pair struct {
		have, want bool
		typ        domain.CommendType
	}
	for _, p := range []pair{
		{existing.Friendly, req.Friendly, domain.CommendFriendly},
		{existing.Teaching, req.Teaching, domain.CommendTeaching},
		{existing.Leader, req.Leader, domain.CommendLeader},
	} {
		switch {
		case !p.have && p.want:
			adds = append(adds, p.typ)
		case p.have && !p.want:
			removes = append(removes, p.typ)
		}
	}
	return adds, removes
}

// CommendQueryResponse is the response to a commend query: existing
// per-type flags plus the sender's current token count.
type CommendQueryResponse struct {
	Flags  domain.CommendFlags
	Tokens int
}

func (s *Service) CommendQuery(ctx context.Context, sender, target uint64) (CommendQueryResponse, error) {
	flags, err := s.repo.ListCommends(ctx, sender, target, commendWindow)
	if err != nil {
		return CommendQueryResponse{}, fmt.Errorf("commend query: list: %w", err)
	}
	tokens, err := s.repo.GetCommendTokens(ctx, sender)
	if err != nil {
		return CommendQueryResponse{}, fmt.Errorf("commend query: tokens: %w", err)
	}
	return CommendQueryResponse{Flags: flags, Tokens: tokens}, nil
}
