package matchmaking

import (
	"testing"

	"github.com/classiccounter/gcserver/internal/domain"
)

func TestRatingUpdater_KFactor(t *testing.T) {
	u := NewRatingUpdater()

	tests := []struct {
		wins      uint32
		expectedK float64
	}{
		{0, 40.0},
		{9, 40.0},
		{10, 32.0},
		{19, 32.0},
		{20, 24.0},
		{100, 24.0},
	}

	for _, tt := range tests {
		if got := u.KFactor(tt.wins); got != tt.expectedK {
			t.Errorf("KFactor(%d) = %v, want %v", tt.wins, got, tt.expectedK)
		}
	}
}

func TestRatingUpdater_EqualTeamsWinIncreasesMMR(t *testing.T) {
	u := NewRatingUpdater()
	rating := domain.PlayerSkillRating{MMR: 1200, Wins: 5}

	updated := u.Apply(rating, 1200, 1200, Win)

	if updated.MMR <= rating.MMR {
		t.Fatalf("MMR did not increase on win: %d -> %d", rating.MMR, updated.MMR)
	}
	if updated.Wins != rating.Wins+1 {
		t.Fatalf("Wins not incremented: got %d", updated.Wins)
	}
	if updated.Rank != domain.RankForScore(updated.MMR) {
		t.Fatalf("rank out of sync with MMR")
	}
}

func TestRatingUpdater_EqualTeamsLossDecreasesMMR(t *testing.T) {
	u := NewRatingUpdater()
	rating := domain.PlayerSkillRating{MMR: 1200, Wins: 5}

	updated := u.Apply(rating, 1200, 1200, Loss)

	if updated.MMR >= rating.MMR {
		t.Fatalf("MMR did not decrease on loss: %d -> %d", rating.MMR, updated.MMR)
	}
	if updated.Wins != rating.Wins {
		t.Fatalf("wins incremented on a loss")
	}
}

func TestRatingUpdater_ProvisionalPlayerMovesMoreThanEstablished(t *testing.T) {
	u := NewRatingUpdater()

	provisional := u.Apply(domain.PlayerSkillRating{MMR: 1200, Wins: 2}, 1200, 1200, Win)
	established := u.Apply(domain.PlayerSkillRating{MMR: 1200, Wins: 50}, 1200, 1200, Win)

	provisionalDelta := int(provisional.MMR) - 1200
	establishedDelta := int(established.MMR) - 1200

	if provisionalDelta <= establishedDelta {
		t.Fatalf("expected provisional delta (%d) > established delta (%d)", provisionalDelta, establishedDelta)
	}
}

func TestRatingUpdater_MMRFloorsAtZero(t *testing.T) {
	u := NewRatingUpdater()
	rating := domain.PlayerSkillRating{MMR: 5, Wins: 100}

	updated := u.Apply(rating, 3000, 100, Loss)

	if updated.MMR != 0 {
		t.Fatalf("expected MMR to floor at 0, got %d", updated.MMR)
	}
}
