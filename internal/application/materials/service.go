package materials

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/google/uuid"

	"github.com/avelinov/trendwatch/internal/application"
	domain "github.com/avelinov/trendwatch/internal/domain/materials"
	"github.com/avelinov/trendwatch/internal/platform/logger"
)

// embedBatchSize caps one embeddings API call
const embedBatchSize = 64

// Service implements the material ingestion use-case: parse the uploaded
// CSV, clean rows, embed the bodies, index the vectors, persist the rows and
// archive the raw file.
type Service struct {
	Repo     domain.Repository
	Index    domain.VectorIndex
	Embedder domain.Embedder
	Archive  domain.ArtifactStore
	Clock    application.Clock
	Log      *logger.Logger
}

// ImportResult summarizes one CSV import
type ImportResult struct {
	BatchID     string   `json:"batch_id"`
	Imported    int      `json:"imported"`
	Skipped     int      `json:"skipped"`
	Categories  []string `json:"categories"`
	ArtifactURL string   `json:"artifact_url,omitempty"`
}

// ImportCSV ingests one CSV batch. Rows without any usable text are skipped,
// not fatal; a malformed file is.
func (s *Service) ImportCSV(ctx context.Context, r io.Reader) (ImportResult, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return ImportResult{}, fmt.Errorf("read upload: %w", err)
	}

	rows, skipped, err := ParseCSV(bytes.NewReader(raw))
	if err != nil {
		return ImportResult{}, err
	}
	batchID := uuid.New().String()
	result := ImportResult{BatchID: batchID, Skipped: skipped}
	if len(rows) == 0 {
		return result, fmt.Errorf("no importable rows in file")
	}

	now := s.Clock.Now()
	categories := make(map[string]struct{})
	for i := range rows {
		rows[i].CreatedAt = now
		categories[rows[i].Category] = struct{}{}
	}

	// embed in batches, then index and persist row by row so a partial
	// failure leaves previously saved materials intact (upsert by url makes
	// re-imports safe)
	for start := 0; start < len(rows); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[start:end]

		texts := make([]string, len(batch))
		for i := range batch {
			texts[i] = batch[i].Text()
		}
		vectors, err := s.Embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return result, fmt.Errorf("embed batch: %w", err)
		}
		if len(vectors) != len(batch) {
			return result, fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(batch))
		}

		items := make([]domain.IndexedMaterial, len(batch))
		for i := range batch {
			items[i] = domain.IndexedMaterial{Material: batch[i], Vector: vectors[i]}
		}
		if err := s.Index.Upsert(ctx, items); err != nil {
			return result, fmt.Errorf("index batch: %w", err)
		}
		for i := range batch {
			if err := s.Repo.Save(ctx, &batch[i]); err != nil {
				return result, fmt.Errorf("save material %s: %w", batch[i].URL, err)
			}
			result.Imported++
		}
	}

	for c := range categories {
		result.Categories = append(result.Categories, c)
	}
	sort.Strings(result.Categories)

	if s.Archive != nil {
		key := fmt.Sprintf("imports/%s.csv", batchID)
		url, err := s.Archive.UploadBytes(ctx, key, raw, "text/csv")
		if err != nil {
			// the batch is already indexed; losing the archive copy is not fatal
			s.Log.Error("archive import file", "batch_id", batchID, "error", err)
		} else {
			result.ArtifactURL = url
		}
	}

	s.Log.Info("csv import finished",
		"batch_id", batchID, "imported", result.Imported, "skipped", result.Skipped)
	return result, nil
}

// Categories lists the distinct material categories
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	return s.Repo.Categories(ctx)
}
