package materials

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/avelinov/trendwatch/internal/domain/materials"
	"github.com/avelinov/trendwatch/internal/platform/logger"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type memRepo struct {
	saved []domain.Material
	err   error
}

func (m *memRepo) Save(ctx context.Context, mat *domain.Material) error {
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, *mat)
	return nil
}

func (m *memRepo) Categories(ctx context.Context) ([]string, error) {
	return []string{"games", "software"}, nil
}

type memIndex struct {
	upserts [][]domain.IndexedMaterial
	err     error
}

func (m *memIndex) EnsureCollection(ctx context.Context, dim int) error { return nil }

func (m *memIndex) Upsert(ctx context.Context, items []domain.IndexedMaterial) error {
	if m.err != nil {
		return m.err
	}
	m.upserts = append(m.upserts, items)
	return nil
}

type stubBatchEmbedder struct {
	err   error
	short bool
	calls int
}

func (s *stubBatchEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	n := len(texts)
	if s.short {
		n--
	}
	out := make([][]float32, n)
	for i := range out {
		out[i] = []float32{0.1}
	}
	return out, nil
}

type memArchive struct {
	key  string
	size int
	err  error
}

func (m *memArchive) UploadBytes(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.key = key
	m.size = len(data)
	return "bucket/" + key, nil
}

func newImportService(repo *memRepo, index *memIndex, emb *stubBatchEmbedder, arch *memArchive) *Service {
	svc := &Service{
		Repo:     repo,
		Index:    index,
		Embedder: emb,
		Clock:    fixedClock{t: time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)},
		Log:      logger.NewNop(),
	}
	if arch != nil {
		svc.Archive = arch
	}
	return svc
}

func importCSVBody(rows int) string {
	var sb strings.Builder
	sb.WriteString("url,title,description,content,date,category,source_type\n")
	for i := 0; i < rows; i++ {
		fmt.Fprintf(&sb, "https://m%d,t%d,d%d,c%d,2026-08-29,games,news\n", i, i, i, i)
	}
	return sb.String()
}

func TestImportCSVSuccess(t *testing.T) {
	repo := &memRepo{}
	index := &memIndex{}
	emb := &stubBatchEmbedder{}
	arch := &memArchive{}
	svc := newImportService(repo, index, emb, arch)

	result, err := svc.ImportCSV(context.Background(), strings.NewReader(importCSVBody(3)))

	require.NoError(t, err)
	assert.NotEmpty(t, result.BatchID)
	assert.Equal(t, 3, result.Imported)
	assert.Equal(t, 0, result.Skipped)
	assert.Equal(t, []string{"games"}, result.Categories)
	assert.Equal(t, "bucket/imports/"+result.BatchID+".csv", result.ArtifactURL)

	assert.Len(t, repo.saved, 3)
	require.Len(t, index.upserts, 1)
	assert.Len(t, index.upserts[0], 3)
	// rows get the import timestamp
	assert.Equal(t, 2026, repo.saved[0].CreatedAt.Year())
}

func TestImportCSVBatchesLargeFiles(t *testing.T) {
	repo := &memRepo{}
	index := &memIndex{}
	emb := &stubBatchEmbedder{}
	svc := newImportService(repo, index, emb, nil)

	result, err := svc.ImportCSV(context.Background(), strings.NewReader(importCSVBody(150)))

	require.NoError(t, err)
	assert.Equal(t, 150, result.Imported)
	// 150 rows at a batch size of 64 means 3 embedding calls
	assert.Equal(t, 3, emb.calls)
	assert.Len(t, index.upserts, 3)
}

func TestImportCSVNoUsableRows(t *testing.T) {
	svc := newImportService(&memRepo{}, &memIndex{}, &stubBatchEmbedder{}, nil)

	in := "url,title,description,content,date,category,source_type\n,,,,,,\n"
	_, err := svc.ImportCSV(context.Background(), strings.NewReader(in))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no importable rows")
}

func TestImportCSVEmbedFailureAborts(t *testing.T) {
	repo := &memRepo{}
	emb := &stubBatchEmbedder{err: fmt.Errorf("quota")}
	svc := newImportService(repo, &memIndex{}, emb, nil)

	_, err := svc.ImportCSV(context.Background(), strings.NewReader(importCSVBody(2)))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "embed batch")
	assert.Empty(t, repo.saved)
}

func TestImportCSVVectorCountMismatch(t *testing.T) {
	svc := newImportService(&memRepo{}, &memIndex{}, &stubBatchEmbedder{short: true}, nil)

	_, err := svc.ImportCSV(context.Background(), strings.NewReader(importCSVBody(2)))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "vectors for")
}

func TestImportCSVArchiveFailureIsNotFatal(t *testing.T) {
	arch := &memArchive{err: fmt.Errorf("minio down")}
	svc := newImportService(&memRepo{}, &memIndex{}, &stubBatchEmbedder{}, arch)

	result, err := svc.ImportCSV(context.Background(), strings.NewReader(importCSVBody(1)))

	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	assert.Empty(t, result.ArtifactURL)
}
