package audit

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
)

// PostgresSink mirrors audit entries into a table. The handle is the row id.
type PostgresSink struct {
	db    *sql.DB
	table string
}

func NewPostgres(dsn, table string) (*PostgresSink, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	s := &PostgresSink{db: db, table: table}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresSink) migrate(ctx context.Context) error {
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id UUID PRIMARY KEY,
		run_id UUID NOT NULL,
		source TEXT NOT NULL,
		response TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	);`, pq.QuoteIdentifier(s.table))
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to create audit table: %w", err)
	}
	return nil
}

func (s *PostgresSink) Write(ctx context.Context, e Entry) (string, error) {
	id := uuid.New()
	stmt := fmt.Sprintf(`INSERT INTO %s (id, run_id, source, response, created_at) VALUES ($1, $2, $3, $4, $5)`,
		pq.QuoteIdentifier(s.table))
	if _, err := s.db.ExecContext(ctx, stmt, id, e.RunID, e.Source, e.Response, e.CreatedAt); err != nil {
		return "", fmt.Errorf("insert audit row: %w", err)
	}
	return id.String(), nil
}

func (s *PostgresSink) Close() error {
	return s.db.Close()
}
