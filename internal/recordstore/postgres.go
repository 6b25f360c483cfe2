package recordstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/park285/cheese-replay/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS replay_records (
	id           TEXT PRIMARY KEY,
	pgn          TEXT NOT NULL,
	white_name   TEXT NOT NULL DEFAULT '',
	white_rating INTEGER NOT NULL DEFAULT 0,
	black_name   TEXT NOT NULL DEFAULT '',
	black_rating INTEGER NOT NULL DEFAULT 0,
	result       TEXT NOT NULL DEFAULT '*',
	ended_at     TIMESTAMPTZ NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS replay_records_ended_at_idx ON replay_records (ended_at DESC);`

// PostgresRepository stores records in the replay_records table.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(databaseURL string) (*PostgresRepository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return newPostgresRepository(db), nil
}

func newPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureSchema creates the table and index when missing.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure replay_records schema: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

const selectColumns = `id, pgn, white_name, white_rating, black_name, black_rating, result, ended_at, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(s rowScanner) (domain.GameRecord, error) {
	var rec domain.GameRecord
	err := s.Scan(
		&rec.ID,
		&rec.PGN,
		&rec.White.Name,
		&rec.White.Rating,
		&rec.Black.Name,
		&rec.Black.Rating,
		&rec.Result,
		&rec.EndedAt,
		&rec.CreatedAt,
	)
	return rec, err
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*domain.GameRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM replay_records WHERE id = $1`, strings.TrimSpace(id))
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select replay record: %w", err)
	}
	return &rec, nil
}

func (r *PostgresRepository) Recent(ctx context.Context, limit int) ([]domain.GameRecord, error) {
	limit = clampLimit(limit)
	rows, err := r.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM replay_records ORDER BY ended_at DESC, created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("select replay records: %w", err)
	}
	defer rows.Close()

	out := make([]domain.GameRecord, 0, limit)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan replay record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate replay records: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) Save(ctx context.Context, rec *domain.GameRecord) (string, error) {
	out, err := prepare(rec, time.Now())
	if err != nil {
		return "", err
	}
	const query = `
		INSERT INTO replay_records (id, pgn, white_name, white_rating, black_name, black_rating, result, ended_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING`
	res, err := r.db.ExecContext(ctx, query,
		out.ID, out.PGN,
		out.White.Name, out.White.Rating,
		out.Black.Name, out.Black.Rating,
		out.Result, out.EndedAt, out.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("insert replay record: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return "", ErrDuplicate
	}
	return out.ID, nil
}

var _ Repository = (*PostgresRepository)(nil)
