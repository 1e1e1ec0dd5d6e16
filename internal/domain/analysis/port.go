package analysis

import "context"

// Embedder port: turns text into a query vector. Dimensionality is fixed
// per deployment; a mismatch with the stored vectors is a configuration
// error, not something the pipeline handles.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// SearchQuery parameters for one similarity search call
type SearchQuery struct {
	Category string
	MinScore float64
	Limit    int
	AsOfDate string // optional date payload filter
}

// Searcher port: external similarity search. Returns candidates ordered by
// descending score. Zero matches is a normal outcome, not an error.
type Searcher interface {
	Search(ctx context.Context, vector []float32, q SearchQuery) ([]Document, error)
}

// Completer port: the generation model. Complete sends one prompt plus the
// original user query as conversational context and returns free text.
type Completer interface {
	Complete(ctx context.Context, prompt, userContext string) (string, error)
	// MaxContextSize reports the model's context window in tokens.
	MaxContextSize() int
}

// TokenEstimator estimates the token cost of a text span. Used only for
// budgeting, never for correctness-critical decisions. Must be deterministic
// and monotonic (a superstring never costs less than its substring).
type TokenEstimator interface {
	Estimate(text string) int
}

// Prompter builds the prompt text for each pipeline stage. Wording is
// configuration; the pipeline only relies on the shape of each stage's
// response (free text vs a JSON list).
type Prompter interface {
	Theme(req Request) string
	FilterChunk(req Request, theme string, docs []Document, part, total int) string
	AnalyzeChunk(req Request, theme string, kept []FilteredDocument, part, total int) string
	Synthesize(req Request, theme, joined string) string
}

// Repository port for persisting finished reports
type Repository interface {
	Save(ctx context.Context, r *Report) error
	Paginate(ctx context.Context, category string, page, pageSize int) ([]*Report, error)
}
