package materials

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	domain "github.com/avelinov/trendwatch/internal/domain/materials"
)

var requiredColumns = []string{"url", "title", "description", "content", "date", "category", "source_type"}

// ParseCSV reads an import file and returns the cleaned rows plus the count
// of rows skipped for having no usable text. The header must carry all
// required columns; extra columns are ignored.
func ParseCSV(r io.Reader) ([]domain.Material, int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("read csv header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(strings.ToLower(name))] = i
	}
	var missing []string
	for _, col := range requiredColumns {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, 0, fmt.Errorf("csv is missing columns: %s", strings.Join(missing, ", "))
	}

	var rows []domain.Material
	skipped := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("read csv row: %w", err)
		}
		field := func(col string) string {
			i := idx[col]
			if i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		m := domain.Material{
			URL:         field("url"),
			Title:       field("title"),
			Description: field("description"),
			Content:     field("content"),
			Date:        field("date"),
			Category:    field("category"),
			SourceType:  field("source_type"),
		}
		if m.URL == "" || m.Text() == "" {
			skipped++
			continue
		}
		rows = append(rows, m)
	}
	return rows, skipped, nil
}
