package reports

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgxDB is the subset of pgxpool.Pool the repository uses. pgxmock satisfies
// it in tests.
type pgxDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository persists reports in Postgres.
type PostgresRepository struct {
	db pgxDB
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("reports: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithDB allows injecting mocks for tests.
func NewPostgresRepositoryWithDB(db pgxDB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, report Report) (Report, error) {
	report.ID = uuid.NewString()
	if report.IconName == "" {
		report.IconName = "LineChart"
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO reports (id, icon_name, title, diagnosis, recommendations)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		report.ID, report.IconName, report.Title,
		report.Content.Diagnosis, report.Content.Recommendations,
	).Scan(&report.Date)
	if err != nil {
		return Report{}, fmt.Errorf("reports: insert failed: %w", err)
	}
	return report, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (Report, error) {
	var report Report
	err := r.db.QueryRow(ctx, `
		SELECT id, icon_name, title, diagnosis, recommendations, created_at
		FROM reports WHERE id = $1`, id,
	).Scan(&report.ID, &report.IconName, &report.Title,
		&report.Content.Diagnosis, &report.Content.Recommendations, &report.Date)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Report{}, ErrNotFound
		}
		return Report{}, fmt.Errorf("reports: select failed: %w", err)
	}
	return report, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]Report, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, icon_name, title, diagnosis, recommendations, created_at
		FROM reports ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("reports: select failed: %w", err)
	}
	defer rows.Close()

	var out []Report
	for rows.Next() {
		var report Report
		if err := rows.Scan(&report.ID, &report.IconName, &report.Title,
			&report.Content.Diagnosis, &report.Content.Recommendations, &report.Date); err != nil {
			return nil, fmt.Errorf("reports: scan failed: %w", err)
		}
		out = append(out, report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reports: row iteration failed: %w", err)
	}
	return out, nil
}
