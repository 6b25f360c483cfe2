// Package recordstore keeps finished game records that sessions can be loaded from.
package recordstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/park285/cheese-replay/internal/domain"
	"github.com/park285/cheese-replay/internal/replay"
)

var (
	ErrNotFound  = errors.New("game record not found")
	ErrDuplicate = errors.New("game record already exists")
)

const DefaultRecentLimit = 10

type Repository interface {
	Get(ctx context.Context, id string) (*domain.GameRecord, error)
	Recent(ctx context.Context, limit int) ([]domain.GameRecord, error)
	Save(ctx context.Context, rec *domain.GameRecord) (string, error)
}

// prepare validates the move text and fills ID, Result, players and timestamps.
func prepare(rec *domain.GameRecord, now time.Time) (domain.GameRecord, error) {
	if rec == nil {
		return domain.GameRecord{}, fmt.Errorf("nil game record")
	}
	out := *rec
	out.PGN = strings.TrimSpace(out.PGN)
	if _, err := replay.ParseMoveText(out.PGN); err != nil {
		return domain.GameRecord{}, fmt.Errorf("validate record: %w", err)
	}
	if strings.TrimSpace(out.ID) == "" {
		out.ID = uuid.NewString()
	}
	if strings.TrimSpace(out.Result) == "" {
		out.Result = replay.ResolveOutcome(out.PGN).ResultToken()
	}
	white, black := replay.HeaderPlayers(out.PGN)
	out.White = fillPlayer(out.White, white)
	out.Black = fillPlayer(out.Black, black)
	if out.CreatedAt.IsZero() {
		out.CreatedAt = now
	}
	if out.EndedAt.IsZero() {
		out.EndedAt = out.CreatedAt
	}
	return out, nil
}

// fillPlayer copies header values into the fields the caller left empty.
func fillPlayer(p, fromHeaders domain.Player) domain.Player {
	if strings.TrimSpace(p.Name) == "" {
		p.Name = fromHeaders.Name
	}
	if p.Rating <= 0 {
		p.Rating = fromHeaders.Rating
	}
	return p
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultRecentLimit
	}
	return limit
}
