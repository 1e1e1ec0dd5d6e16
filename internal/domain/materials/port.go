package materials

import "context"

// Repository port (persistence for material rows)
type Repository interface {
	Save(ctx context.Context, m *Material) error
	Categories(ctx context.Context) ([]string, error)
}

// VectorIndex port (similarity index for material bodies)
type VectorIndex interface {
	EnsureCollection(ctx context.Context, dim int) error
	Upsert(ctx context.Context, items []IndexedMaterial) error
}

// Embedder port used by ingestion; batched because imports embed many rows
// at once.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// ArtifactStore port (archive of raw import files)
type ArtifactStore interface {
	UploadBytes(ctx context.Context, key string, data []byte, contentType string) (string, error)
}
