package postgres

import (
	"context"
	"database/sql"
	"time"

	domain "github.com/avelinov/trendwatch/internal/domain/materials"
)

type MaterialRepository struct {
	db *sql.DB
}

func NewMaterialRepository(db *sql.DB) *MaterialRepository {
	return &MaterialRepository{db: db}
}

// Save upserts a material row keyed by url
func (r *MaterialRepository) Save(ctx context.Context, m *domain.Material) error {
	const q = `
INSERT INTO materials
  (url, title, description, content, date, category, source_type, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (url) DO UPDATE SET
 title=EXCLUDED.title, description=EXCLUDED.description, content=EXCLUDED.content,
 date=EXCLUDED.date, category=EXCLUDED.category, source_type=EXCLUDED.source_type;
`
	created := m.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := r.db.ExecContext(ctx, q,
		m.URL, m.Title, m.Description, m.Content,
		m.Date, stringOrDash(m.Category), m.SourceType, created,
	)
	return err
}

// Categories lists distinct categories in stable order
func (r *MaterialRepository) Categories(ctx context.Context) ([]string, error) {
	const q = `SELECT DISTINCT category FROM materials ORDER BY category;`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
