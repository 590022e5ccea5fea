// Package postgres implements repository.Repository over lib/pq,
// grounded on internal/repository query style: every
// statement is parameterised ($1, $2, ...), never built by
// concatenation.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/classiccounter/gcserver/internal/domain"
	"github.com/classiccounter/gcserver/internal/gcerr"
	"github.com/classiccounter/gcserver/internal/repository"
	"github.com/classiccounter/gcserver/pkg/database"
)

type Repository struct {
	db *database.DB
}

func New(db *database.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetPlayerRating(ctx context.Context, steamID uint64) (domain.PlayerSkillRating, error) {
	const query = `SELECT rank, wins, mmr, level FROM player_ratings WHERE steam_id = $1`
	var rating domain.PlayerSkillRating
	err := r.db.QueryRowContext(ctx, query, steamID).Scan(&rating.Rank, &rating.Wins, &rating.MMR, &rating.Level)
	if err == sql.ErrNoRows {
		return domain.DefaultRating(), gcerr.ErrNotFound
	}
	if err != nil {
		return domain.PlayerSkillRating{}, fmt.Errorf("%w: get player rating: %v", gcerr.ErrRepositoryUnavailable, err)
	}
	return rating, nil
}

func (r *Repository) UpdatePlayerRating(ctx context.Context, steamID uint64, rating domain.PlayerSkillRating) error {
	const query = `
		INSERT INTO player_ratings (steam_id, rank, wins, mmr, level)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (steam_id) DO UPDATE SET
			rank = EXCLUDED.rank,
			wins = EXCLUDED.wins,
			mmr = EXCLUDED.mmr,
			level = EXCLUDED.level
	`
	_, err := r.db.ExecContext(ctx, query, steamID, rating.Rank, rating.Wins, rating.MMR, rating.Level)
	if err != nil {
		return fmt.Errorf("%w: update player rating: %v", gcerr.ErrRepositoryUnavailable, err)
	}
	return nil
}

func (r *Repository) LogMatch(ctx context.Context, m *domain.Match) error {
	const query = `
		INSERT INTO match_log (match_id, match_token, map_name, state, avg_mmr, server_address, server_port, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (match_id) DO UPDATE SET state = EXCLUDED.state
	`
	_, err := r.db.ExecContext(ctx, query,
		m.MatchID, m.MatchToken, m.MapName, m.State().String(), m.AvgMMR,
		m.ServerAddress, m.ServerPort, m.CreatedTime,
	)
	if err != nil {
		return fmt.Errorf("%w: log match: %v", gcerr.ErrRepositoryUnavailable, err)
	}
	return nil
}

func (r *Repository) GetCommends(ctx context.Context, target uint64) (domain.CommendFlags, error) {
	return r.ListCommends(ctx, 0, target, 0)
}

func (r *Repository) GetCommendTokens(ctx context.Context, sender uint64) (int, error) {
	const query = `
		SELECT COUNT(DISTINCT receiver)
		FROM commends
		WHERE sender = $1 AND created_at > now() - interval '24 hours'
	`
	var used int
	if err := r.db.QueryRowContext(ctx, query, sender).Scan(&used); err != nil {
		return 0, fmt.Errorf("%w: get commend tokens: %v", gcerr.ErrRepositoryUnavailable, err)
	}
	if remaining := 3 - used; remaining > 0 {
		return remaining, nil
	}
	return 0, nil
}

func (r *Repository) ListCommends(ctx context.Context, sender, target uint64, within time.Duration) (domain.CommendFlags, error) {
	query := `SELECT type FROM commends WHERE receiver = $1`
	args := []interface{}{target}
	if sender != 0 {
		query += ` AND sender = $2`
		args = append(args, sender)
	}
	if within > 0 {
		query += fmt.Sprintf(` AND created_at > $%d`, len(args)+1)
		args = append(args, time.Now().Add(-within))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return domain.CommendFlags{}, fmt.Errorf("%w: list commends: %v", gcerr.ErrRepositoryUnavailable, err)
	}
	defer rows.Close()

	var flags domain.CommendFlags
	for rows.Next() {
		var typ int
		if err := rows.Scan(&typ); err != nil {
			return domain.CommendFlags{}, fmt.Errorf("%w: scan commend: %v", gcerr.ErrRepositoryUnavailable, err)
		}
		switch domain.CommendType(typ) {
		case domain.CommendFriendly:
			flags.Friendly = true
		case domain.CommendTeaching:
			flags.Teaching = true
		case domain.CommendLeader:
			flags.Leader = true
		}
	}
	return flags, rows.Err()
}

func (r *Repository) InsertCommend(ctx context.Context, sender, target uint64, typ domain.CommendType) error {
	const query = `INSERT INTO commends (sender, receiver, type, created_at) VALUES ($1, $2, $3, now())`
	_, err := r.db.ExecContext(ctx, query, sender, target, int(typ))
	if err != nil {
		return fmt.Errorf("%w: insert commend: %v", gcerr.ErrRepositoryUnavailable, err)
	}
	return nil
}

func (r *Repository) DeleteCommend(ctx context.Context, sender, target uint64, typ domain.CommendType) error {
	const query = `DELETE FROM commends WHERE sender = $1 AND receiver = $2 AND type = $3`
	_, err := r.db.ExecContext(ctx, query, sender, target, int(typ))
	if err != nil {
		return fmt.Errorf("%w: delete commend: %v", gcerr.ErrRepositoryUnavailable, err)
	}
	return nil
}

func (r *Repository) GetReportTokens(ctx context.Context, sender uint64) (int, error) {
	const query = `
		SELECT COUNT(DISTINCT receiver)
		FROM reports
		WHERE sender = $1 AND created_at > now() - interval '7 days'
	`
	var used int
	if err := r.db.QueryRowContext(ctx, query, sender).Scan(&used); err != nil {
		return 0, fmt.Errorf("%w: get report tokens: %v", gcerr.ErrRepositoryUnavailable, err)
	}
	if remaining := 6 - used; remaining > 0 {
		return remaining, nil
	}
	return 0, nil
}

func (r *Repository) CountReports(ctx context.Context, sender, target uint64, within time.Duration) (int, error) {
	const query = `
		SELECT COUNT(*) FROM reports
		WHERE sender = $1 AND receiver = $2 AND created_at > $3
	`
	var count int
	if err := r.db.QueryRowContext(ctx, query, sender, target, time.Now().Add(-within)).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: count reports: %v", gcerr.ErrRepositoryUnavailable, err)
	}
	return count, nil
}

// InsertReport inserts one row per flagged type in a single statement,
// fanning the report-type array out with unnest rather than issuing one
// INSERT per type.
func (r *Repository) InsertReport(ctx context.Context, sender, target uint64, types []domain.ReportType, matchID uint64) error {
	typeInts := make([]int32, len(types))
	for i, typ := range types {
		typeInts[i] = int32(typ)
	}
	const query = `
		INSERT INTO reports (sender, receiver, type, match_id, created_at)
		SELECT $1, $2, t, $4, now() FROM unnest($3::int[]) AS t
	`
	_, err := r.db.ExecContext(ctx, query, sender, target, pq.Array(typeInts), matchID)
	if err != nil {
		return fmt.Errorf("%w: insert report: %v", gcerr.ErrRepositoryUnavailable, err)
	}
	return nil
}

func (r *Repository) IsBanned(ctx context.Context, steamID2 string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM bans WHERE steam_id = $1 AND length = 0 AND removed IS NULL)`
	var banned bool
	if err := r.db.QueryRowContext(ctx, query, steamID2).Scan(&banned); err != nil {
		return false, fmt.Errorf("%w: is banned: %v", gcerr.ErrRepositoryUnavailable, err)
	}
	return banned, nil
}

func (r *Repository) GetLatestCooldown(ctx context.Context, steamID2 string) (*domain.Cooldown, error) {
	const query = `
		SELECT reason, expire
		FROM cooldowns
		WHERE steam_id = $1 AND expire > now() AND acknowledged = false
		ORDER BY expire DESC
		LIMIT 1
	`
	var reason string
	var expire time.Time
	err := r.db.QueryRowContext(ctx, query, steamID2).Scan(&reason, &expire)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get latest cooldown: %v", gcerr.ErrRepositoryUnavailable, err)
	}
	remaining := int64(expire.Sub(time.Now()).Seconds())
	if remaining < 0 {
		remaining = 0
	}
	return &domain.Cooldown{Reason: reason, SecondsRemaining: remaining}, nil
}

func (r *Repository) ListMedals(ctx context.Context, steamID2 string) ([]repository.Medal, error) {
	const query = `SELECT def_index, featured FROM medals WHERE steam_id = $1 ORDER BY def_index`
	rows, err := r.db.QueryContext(ctx, query, steamID2)
	if err != nil {
		return nil, fmt.Errorf("%w: list medals: %v", gcerr.ErrRepositoryUnavailable, err)
	}
	defer rows.Close()

	var medals []repository.Medal
	for rows.Next() {
		var m repository.Medal
		if err := rows.Scan(&m.DefIndex, &m.Featured); err != nil {
			return nil, fmt.Errorf("%w: scan medal: %v", gcerr.ErrRepositoryUnavailable, err)
		}
		medals = append(medals, m)
	}
	return medals, rows.Err()
}

var _ repository.Repository = (*Repository)(nil)
