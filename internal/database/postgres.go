package database

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"

	"streamflix-catalog-service/internal/config"
)

// NewPostgres creates a new PostgreSQL connection and runs migrations.
func NewPostgres(cfg config.DBConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)

	slog.Info("connected to PostgreSQL", "db", cfg.DBName)

	if err := runMigrations(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

func runMigrations(db *sql.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS genres (
			id SERIAL PRIMARY KEY,
			name VARCHAR(100) UNIQUE NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS content_items (
			id VARCHAR(100) PRIMARY KEY,
			title VARCHAR(500) NOT NULL,
			kind VARCHAR(10) NOT NULL,
			rating DOUBLE PRECISION DEFAULT 0,
			year INTEGER DEFAULT 0,
			duration VARCHAR(50) DEFAULT '',
			thumbnail VARCHAR(500) DEFAULT '',
			description TEXT DEFAULT '',
			trending BOOLEAN DEFAULT FALSE,
			featured BOOLEAN DEFAULT FALSE,
			video_url VARCHAR(500) DEFAULT '',
			position INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS content_genres (
			content_id VARCHAR(100) REFERENCES content_items(id) ON DELETE CASCADE,
			genre_id INTEGER REFERENCES genres(id) ON DELETE CASCADE,
			position INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (content_id, genre_id)
		)`,
		// Catalog order is served by position, not insertion order.
		`CREATE INDEX IF NOT EXISTS idx_content_items_position ON content_items(position)`,
		`CREATE INDEX IF NOT EXISTS idx_content_items_kind ON content_items(kind)`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}

	slog.Info("database migrations completed")
	return nil
}
