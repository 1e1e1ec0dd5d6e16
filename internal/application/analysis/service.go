package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/avelinov/trendwatch/internal/application"
	domain "github.com/avelinov/trendwatch/internal/domain/analysis"
	"github.com/avelinov/trendwatch/internal/platform/logger"
)

// Separator between intermediate analyses when they are merged
const analysisSeparator = "\n\n---\n\n"

// Options tune retrieval and budgeting for one service instance
type Options struct {
	MinScore     float64 // similarity threshold for retrieval
	SearchLimit  int     // default retrieval cap
	SafetyFactor float64 // fraction of the context window spent on documents
}

// Service runs the retrieval-to-report pipeline. All collaborators are
// injected ports; the service holds no mutable state, so one instance serves
// concurrent requests without locking.
type Service struct {
	Embedder  domain.Embedder
	Searcher  domain.Searcher
	Completer domain.Completer
	Tokens    domain.TokenEstimator
	Prompts   domain.Prompter
	Reports   domain.Repository // optional; nil disables persistence
	Clock     application.Clock
	Log       *logger.Logger
	Opts      Options
}

// RunCommand for one pipeline invocation. MinScore and SearchLimit override
// the service defaults when set; the digest path uses a much higher limit
// because completeness matters more than latency there.
type RunCommand struct {
	Category    string
	Query       string
	AsOfDate    string
	MinScore    float64
	SearchLimit int
}

// Run executes the pipeline start to finish and always returns a Report.
// Failures never escape as errors: they are folded into the report status so
// callers (HTTP handler, cron job) have a single terminal artifact to handle.
func (s *Service) Run(ctx context.Context, cmd RunCommand) domain.Report {
	req := domain.Request{
		Category: cmd.Category,
		Query:    cmd.Query,
		AsOfDate: cmd.AsOfDate,
	}
	report := domain.Report{
		ID:        domain.ReportID(uuid.New().String()),
		Category:  cmd.Category,
		Query:     cmd.Query,
		CreatedAt: s.Clock.Now(),
	}
	log := s.Log.With("report_id", report.ID, "category", cmd.Category)

	theme, err := s.extractTheme(ctx, req)
	if err != nil {
		return s.fail(ctx, report, fmt.Errorf("extract theme: %w", err))
	}
	report.Theme = theme
	log.Info("theme extracted", "theme", theme)

	docs, err := s.retrieve(ctx, theme, cmd)
	if err != nil {
		return s.fail(ctx, report, fmt.Errorf("retrieve materials: %w", err))
	}
	report.MaterialsCount = len(docs)
	log.Info("materials retrieved", "count", len(docs))
	if len(docs) == 0 {
		return s.fail(ctx, report, domain.ErrNoMaterials)
	}

	budget := int(float64(s.Completer.MaxContextSize()) * s.Opts.SafetyFactor)
	chunks := PlanChunks(docs, budget, s.Tokens)
	log.Info("chunk plan ready", "chunks", len(chunks), "budget", budget)

	// sequential per chunk: filter then analyze. Chunks are processed in
	// retrieval order so the synthesis input order is stable.
	var intermediate []string
	for _, chunk := range chunks {
		kept, err := s.filterChunk(ctx, chunk, req, theme, len(chunks))
		if err != nil {
			return s.fail(ctx, report, fmt.Errorf("filter chunk %d: %w", chunk.Index+1, err))
		}
		if len(kept) == 0 {
			log.Info("chunk dropped by relevance filter", "chunk", chunk.Index+1, "of", len(chunks))
			continue
		}
		text, err := s.analyzeChunk(ctx, kept, req, theme, chunk.Index, len(chunks))
		if err != nil {
			return s.fail(ctx, report, fmt.Errorf("analyze chunk %d: %w", chunk.Index+1, err))
		}
		intermediate = append(intermediate, text)
	}

	if len(intermediate) == 0 {
		return s.fail(ctx, report, domain.ErrNoMaterialsAfterFiltering)
	}

	narrative, err := s.synthesize(ctx, intermediate, req, theme)
	if err != nil {
		return s.fail(ctx, report, fmt.Errorf("synthesize report: %w", err))
	}

	report.Status = domain.StatusSuccess
	report.Narrative = narrative
	s.persist(ctx, &report)
	log.Info("analysis finished", "materials", report.MaterialsCount, "sections", len(intermediate))
	return report
}

// extractTheme derives the short retrieval phrase from the raw query. Only
// this phrase is embedded; downstream prompts keep referencing the raw query
// for user intent.
func (s *Service) extractTheme(ctx context.Context, req domain.Request) (string, error) {
	out, err := s.Completer.Complete(ctx, s.Prompts.Theme(req), req.Query)
	if err != nil {
		return "", err
	}
	theme := strings.TrimSpace(out)
	if theme == "" {
		return "", fmt.Errorf("model returned empty theme")
	}
	return theme, nil
}

// retrieve embeds the theme and runs similarity search, deduplicating by URL
// while preserving the ranked order.
func (s *Service) retrieve(ctx context.Context, theme string, cmd RunCommand) ([]domain.Document, error) {
	vector, err := s.Embedder.Embed(ctx, theme)
	if err != nil {
		return nil, fmt.Errorf("embed theme: %w", err)
	}

	minScore := cmd.MinScore
	if minScore <= 0 {
		minScore = s.Opts.MinScore
	}
	limit := cmd.SearchLimit
	if limit <= 0 {
		limit = s.Opts.SearchLimit
	}

	docs, err := s.Searcher.Search(ctx, vector, domain.SearchQuery{
		Category: cmd.Category,
		MinScore: minScore,
		Limit:    limit,
		AsOfDate: cmd.AsOfDate,
	})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(docs))
	out := docs[:0]
	for _, d := range docs {
		if _, ok := seen[d.URL]; ok {
			continue
		}
		seen[d.URL] = struct{}{}
		out = append(out, d)
	}
	return out, nil
}

// filterChunk asks the model which documents are actually on-topic. The
// response is untrusted structured text: anything that does not strictly
// parse as a JSON list counts as "nothing relevant", never as an error.
func (s *Service) filterChunk(ctx context.Context, chunk domain.Chunk, req domain.Request, theme string, total int) ([]domain.FilteredDocument, error) {
	prompt := s.Prompts.FilterChunk(req, theme, chunk.Documents, chunk.Index+1, total)
	out, err := s.Completer.Complete(ctx, prompt, req.Query)
	if err != nil {
		return nil, err
	}
	kept, ok := parseFilterResponse(out)
	if !ok {
		s.Log.Warn("filter response unparseable, dropping chunk",
			"chunk", chunk.Index+1, "response_len", len(out))
		return nil, nil
	}
	return kept, nil
}

// parseFilterResponse attempts a strict parse of the filter output. Returns
// (list, true) on success and (nil, false) for anything else.
func parseFilterResponse(raw string) ([]domain.FilteredDocument, bool) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var kept []domain.FilteredDocument
	if err := json.Unmarshal([]byte(cleaned), &kept); err != nil {
		return nil, false
	}
	return kept, true
}

// analyzeChunk produces the intermediate analysis for one filtered chunk.
// The prompt only references the kept documents; the raw chunk never reaches
// the analyzer, so off-topic material cannot drift into the report.
func (s *Service) analyzeChunk(ctx context.Context, kept []domain.FilteredDocument, req domain.Request, theme string, index, total int) (string, error) {
	prompt := s.Prompts.AnalyzeChunk(req, theme, kept, index+1, total)
	out, err := s.Completer.Complete(ctx, prompt, req.Query)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// synthesize merges the intermediate analyses. A single analysis passes
// through as-is: there is nothing to merge and the extra completion call
// would only add cost and drift.
func (s *Service) synthesize(ctx context.Context, intermediate []string, req domain.Request, theme string) (string, error) {
	if len(intermediate) == 1 {
		return intermediate[0], nil
	}
	joined := strings.Join(intermediate, analysisSeparator)
	out, err := s.Completer.Complete(ctx, s.Prompts.Synthesize(req, theme, joined), req.Query)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Paginate lists persisted reports
func (s *Service) Paginate(ctx context.Context, category string, page, pageSize int) ([]*domain.Report, error) {
	return s.Reports.Paginate(ctx, category, page, pageSize)
}

func (s *Service) fail(ctx context.Context, report domain.Report, err error) domain.Report {
	report.Status = domain.StatusError
	report.ErrorMessage = err.Error()
	s.Log.Warn("analysis failed", "report_id", report.ID, "error", err)
	s.persist(ctx, &report)
	return report
}

func (s *Service) persist(ctx context.Context, report *domain.Report) {
	if s.Reports == nil {
		return
	}
	if err := s.Reports.Save(ctx, report); err != nil {
		// persistence is auditing, not part of the pipeline contract
		s.Log.Error("save report", "report_id", report.ID, "error", err)
	}
}
