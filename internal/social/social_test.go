package social

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/classiccounter/gcserver/internal/domain"
	"github.com/classiccounter/gcserver/internal/gcerr"
	"github.com/classiccounter/gcserver/internal/repository"
)

// fakeRepo is an in-memory repository.Repository used only by this
// package's tests.
type fakeRepo struct {
	ratings       map[uint64]domain.PlayerSkillRating
	commends      map[[2]uint64]map[domain.CommendType]time.Time
	commendTokens map[uint64]int
	reports       map[[2]uint64][]time.Time
	reportTokens  map[uint64]int
	banned        map[string]bool
	cooldowns     map[string]*domain.Cooldown
	medals        map[string][]repository.Medal
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		ratings:       make(map[uint64]domain.PlayerSkillRating),
		commends:      make(map[[2]uint64]map[domain.CommendType]time.Time),
		commendTokens: make(map[uint64]int),
		reports:       make(map[[2]uint64][]time.Time),
		reportTokens:  make(map[uint64]int),
		banned:        make(map[string]bool),
		cooldowns:     make(map[string]*domain.Cooldown),
		medals:        make(map[string][]repository.Medal),
	}
}

func (f *fakeRepo) GetPlayerRating(_ context.Context, steamID uint64) (domain.PlayerSkillRating, error) {
	if r, ok := f.ratings[steamID]; ok {
		return r, nil
	}
	return domain.DefaultRating(), nil
}

func (f *fakeRepo) UpdatePlayerRating(_ context.Context, steamID uint64, rating domain.PlayerSkillRating) error {
	f.ratings[steamID] = rating
	return nil
}

func (f *fakeRepo) LogMatch(_ context.Context, _ *domain.Match) error { return nil }

func (f *fakeRepo) GetCommends(ctx context.Context, target uint64) (domain.CommendFlags, error) {
	var flags domain.CommendFlags
	for key, types := range f.commends {
		if key[1] != target {
			continue
		}
		for typ := range types {
			setFlag(&flags, typ, true)
		}
	}
	return flags, nil
}

func (f *fakeRepo) GetCommendTokens(_ context.Context, sender uint64) (int, error) {
	if t, ok := f.commendTokens[sender]; ok {
		return t, nil
	}
	return 3, nil
}

func (f *fakeRepo) ListCommends(_ context.Context, sender, target uint64, within time.Duration) (domain.CommendFlags, error) {
	var flags domain.CommendFlags
	types := f.commends[[2]uint64{sender, target}]
	cutoff := time.Now().Add(-within)
	for typ, at := range types {
		if within > 0 && at.Before(cutoff) {
			continue
		}
		setFlag(&flags, typ, true)
	}
	return flags, nil
}

func (f *fakeRepo) InsertCommend(_ context.Context, sender, target uint64, typ domain.CommendType) error {
	key := [2]uint64{sender, target}
	if f.commends[key] == nil {
		f.commends[key] = make(map[domain.CommendType]time.Time)
	}
	f.commends[key][typ] = time.Now()
	return nil
}

func (f *fakeRepo) DeleteCommend(_ context.Context, sender, target uint64, typ domain.CommendType) error {
	delete(f.commends[[2]uint64{sender, target}], typ)
	return nil
}

func (f *fakeRepo) GetReportTokens(_ context.Context, sender uint64) (int, error) {
	if t, ok := f.reportTokens[sender]; ok {
		return t, nil
	}
	return 6, nil
}

func (f *fakeRepo) CountReports(_ context.Context, sender, target uint64, within time.Duration) (int, error) {
	cutoff := time.Now().Add(-within)
	n := 0
	for _, at := range f.reports[[2]uint64{sender, target}] {
		if !at.Before(cutoff) {
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) InsertReport(_ context.Context, sender, target uint64, _ []domain.ReportType, _ uint64) error {
	key := [2]uint64{sender, target}
	f.reports[key] = append(f.reports[key], time.Now())
	return nil
}

func (f *fakeRepo) IsBanned(_ context.Context, steamID2 string) (bool, error) {
	return f.banned[steamID2], nil
}

func (f *fakeRepo) GetLatestCooldown(_ context.Context, steamID2 string) (*domain.Cooldown, error) {
	return f.cooldowns[steamID2], nil
}

func (f *fakeRepo) ListMedals(_ context.Context, steamID2 string) ([]repository.Medal, error) {
	return f.medals[steamID2], nil
}

func setFlag(flags *domain.CommendFlags, typ domain.CommendType, v bool) {
	switch typ {
	case domain.CommendFriendly:
		flags.Friendly = v
	case domain.CommendTeaching:
		flags.Teaching = v
	case domain.CommendLeader:
		flags.Leader = v
	}
}

var _ repository.Repository = (*fakeRepo)(nil)

func TestCommend_NewCommendRequiresTokenWhenNoPriorHistory(t *testing.T) {
	repo := newFakeRepo()
	s := NewService(repo, nil, zap.NewNop())

	repo.commendTokens[1] = 0 // no tokens left
	err := s.Commend(context.Background(), 1, CommendRequest{Target: 2, Friendly: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	flags, _ := repo.ListCommends(context.Background(), 1, 2, commendWindow)
	if flags.Friendly {
		t.Fatal("commend should have been rejected silently when no tokens available")
	}
}

func TestCommend_SwapPreservesTokenBudget(t *testing.T) {
	repo := newFakeRepo()
	s := NewService(repo, nil, zap.NewNop())

	repo.commendTokens[1] = 1
	if err := s.Commend(context.Background(), 1, CommendRequest{Target: 2, Friendly: true}); err != nil {
		t.Fatalf("initial commend failed: %v", err)
	}

	// Swapping types on an existing commend relationship must not
	// require a new token (hadAny=true skips the token check).
	repo.commendTokens[1] = 0
	if err := s.Commend(context.Background(), 1, CommendRequest{Target: 2, Friendly: false, Teaching: true}); err != nil {
		t.Fatalf("swap commend failed: %v", err)
	}

	flags, _ := repo.ListCommends(context.Background(), 1, 2, commendWindow)
	if flags.Friendly || !flags.Teaching {
		t.Fatalf("expected swap to friendly=false teaching=true, got %+v", flags)
	}
}

func TestReport_NoTokens(t *testing.T) {
	repo := newFakeRepo()
	s := NewService(repo, nil, zap.NewNop())
	repo.reportTokens[1] = 0

	resp, err := s.Report(context.Background(), 1, ReportRequest{Target: 2, Types: []domain.ReportType{domain.ReportAimbot}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Result != ReportNoTokens || resp.Tokens != 0 {
		t.Fatalf("got %+v, want NoTokens/0", resp)
	}
	if n, _ := repo.CountReports(context.Background(), 1, 2, reportWindow); n != 0 {
		t.Fatal("no report row should have been inserted")
	}
}

func TestReport_AlreadyReportedWithinWindow(t *testing.T) {
	repo := newFakeRepo()
	s := NewService(repo, nil, zap.NewNop())
	repo.reports[[2]uint64{1, 2}] = []time.Time{time.Now()}

	_, err := s.Report(context.Background(), 1, ReportRequest{Target: 2, Types: []domain.ReportType{domain.ReportGriefing}})
	if err == nil || !isAlreadyReported(err) {
		t.Fatalf("expected ErrAlreadyReported, got %v", err)
	}
}

func isAlreadyReported(err error) bool {
	return err == gcerr.ErrAlreadyReported
}

func TestReport_SuccessEnqueuesModerationEvent(t *testing.T) {
	repo := newFakeRepo()
	sink := &captureSink{}
	s := NewService(repo, sink, zap.NewNop())

	resp, err := s.Report(context.Background(), 1, ReportRequest{
		Target: 2,
		Types:  []domain.ReportType{domain.ReportAimbot, domain.ReportWallhack},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Result != ReportOK {
		t.Fatalf("got result %v, want ReportOK", resp.Result)
	}
	if resp.Tokens != 5 { // default 6, decremented by exactly 1 regardless of type count
		t.Fatalf("got tokens=%d, want 5", resp.Tokens)
	}
	if len(sink.events) != 2 {
		t.Fatalf("got %d enqueued events, want 2", len(sink.events))
	}
}

type captureSink struct {
	events []domain.ReportData
}

func (c *captureSink) Enqueue(data domain.ReportData) {
	c.events = append(c.events, data)
}
