package mysql

import (
	"context"
	"database/sql"
	"time"

	domain "github.com/avelinov/trendwatch/internal/domain/analysis"
)

type ReportRepository struct {
	db *sql.DB
}

func NewReportRepository(db *sql.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Save inserts a finished report for auditing and retrieval
func (r *ReportRepository) Save(ctx context.Context, rep *domain.Report) error {
	const q = `
INSERT INTO trend_reports
  (id, status, category, query, theme, materials_count, narrative, error_message, created_at)
VALUES (?,?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
 status=VALUES(status), theme=VALUES(theme), materials_count=VALUES(materials_count),
 narrative=VALUES(narrative), error_message=VALUES(error_message);
`
	created := rep.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := r.db.ExecContext(ctx, q,
		rep.ID, rep.Status, stringOrDash(rep.Category), rep.Query, rep.Theme,
		rep.MaterialsCount, rep.Narrative, rep.ErrorMessage, created,
	)
	return err
}

// Paginate returns reports ordered by created_at desc, optionally filtered
// by category
func (r *ReportRepository) Paginate(ctx context.Context, category string, page, pageSize int) ([]*domain.Report, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	query := `
SELECT id, status, category, query, theme, materials_count, narrative, error_message, created_at
FROM trend_reports`
	args := []interface{}{}
	if category != "" {
		query += "\nWHERE category = ?"
		args = append(args, category)
	}
	query += "\nORDER BY created_at DESC, id DESC\nLIMIT ? OFFSET ?;"
	args = append(args, pageSize, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Report
	for rows.Next() {
		var rep domain.Report
		if err := rows.Scan(
			&rep.ID, &rep.Status, &rep.Category, &rep.Query, &rep.Theme,
			&rep.MaterialsCount, &rep.Narrative, &rep.ErrorMessage, &rep.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, &rep)
	}
	return out, rows.Err()
}
