package repository

import (
	"database/sql"
	"fmt"

	"streamflix-catalog-service/internal/models"
)

// CatalogRepository handles database operations for the content catalog.
type CatalogRepository struct {
	db *sql.DB
}

// NewCatalogRepository creates a new CatalogRepository.
func NewCatalogRepository(db *sql.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// CountContent returns the number of catalog items.
func (r *CatalogRepository) CountContent() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM content_items`).Scan(&count)
	return count, err
}

// ListContent returns the full catalog in position order, genres attached
// in their stored order.
func (r *CatalogRepository) ListContent() ([]models.ContentItem, error) {
	rows, err := r.db.Query(`
		SELECT id, title, kind, rating, year, duration, thumbnail, description,
			trending, featured, video_url
		FROM content_items
		ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("query content: %w", err)
	}
	defer rows.Close()

	var items []models.ContentItem
	index := make(map[string]int)
	for rows.Next() {
		var c models.ContentItem
		if err := rows.Scan(
			&c.ID, &c.Title, &c.Kind, &c.Rating, &c.Year, &c.Duration,
			&c.Thumbnail, &c.Description, &c.Trending, &c.Featured, &c.VideoURL,
		); err != nil {
			return nil, fmt.Errorf("scan content: %w", err)
		}
		index[c.ID] = len(items)
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	genreRows, err := r.db.Query(`
		SELECT cg.content_id, g.name
		FROM content_genres cg
		JOIN genres g ON g.id = cg.genre_id
		ORDER BY cg.content_id, cg.position
	`)
	if err != nil {
		return nil, fmt.Errorf("query genres: %w", err)
	}
	defer genreRows.Close()

	for genreRows.Next() {
		var contentID, name string
		if err := genreRows.Scan(&contentID, &name); err != nil {
			return nil, fmt.Errorf("scan genre: %w", err)
		}
		if i, ok := index[contentID]; ok {
			items[i].Genres = append(items[i].Genres, name)
		}
	}
	return items, genreRows.Err()
}

// ReplaceCatalog drops the stored catalog and inserts the given items in
// order, inside a single transaction.
func (r *CatalogRepository) ReplaceCatalog(items []models.ContentItem) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM content_items`); err != nil {
		return fmt.Errorf("clear content: %w", err)
	}

	for position, c := range items {
		if _, err := tx.Exec(`
			INSERT INTO content_items (id, title, kind, rating, year, duration,
				thumbnail, description, trending, featured, video_url, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`, c.ID, c.Title, c.Kind, c.Rating, c.Year, c.Duration,
			c.Thumbnail, c.Description, c.Trending, c.Featured, c.VideoURL, position); err != nil {
			return fmt.Errorf("insert content %s: %w", c.ID, err)
		}
		for gi, genre := range c.Genres {
			var genreID int
			if err := tx.QueryRow(`
				INSERT INTO genres (name) VALUES ($1)
				ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
				RETURNING id
			`, genre).Scan(&genreID); err != nil {
				return fmt.Errorf("upsert genre %s: %w", genre, err)
			}
			if _, err := tx.Exec(`
				INSERT INTO content_genres (content_id, genre_id, position)
				VALUES ($1, $2, $3)
				ON CONFLICT DO NOTHING
			`, c.ID, genreID, gi); err != nil {
				return fmt.Errorf("link genre: %w", err)
			}
		}
	}

	return tx.Commit()
}
