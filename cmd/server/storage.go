package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"assent/internal/audit"
	"assent/internal/platform/config"
)

const postgresPingTimeout = 5 * time.Second

// openAuditStore selects the audit trail backend. The returned *sql.DB is
// non-nil only for the postgres backend; the caller owns closing it.
func openAuditStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (audit.Store, *sql.DB, error) {
	switch cfg.Audit.Backend {
	case "memory":
		log.Warn("audit trail is in-memory, events are lost on restart")
		return audit.NewMemoryStore(), nil, nil
	case "postgres":
		db, err := openPostgres(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		store := audit.NewPostgresStore(db)
		if err := store.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("ensure audit schema: %w", err)
		}
		return store, db, nil
	default:
		return nil, nil, fmt.Errorf("unknown audit backend %q", cfg.Audit.Backend)
	}
}

func openPostgres(ctx context.Context, cfg config.PostgresConfig) (*sql.DB, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("audit backend \"postgres\" requires postgres.url")
	}

	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime())

	pingCtx, cancel := context.WithTimeout(ctx, postgresPingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	return db, nil
}
