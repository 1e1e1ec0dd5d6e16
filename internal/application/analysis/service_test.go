package analysis

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/avelinov/trendwatch/internal/domain/analysis"
	"github.com/avelinov/trendwatch/internal/platform/logger"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type stubEmbedder struct {
	vec []float32
	err error
}

func (s stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return s.vec, s.err
}

type stubSearcher struct {
	docs   []domain.Document
	err    error
	called bool
	got    domain.SearchQuery
}

func (s *stubSearcher) Search(ctx context.Context, vector []float32, q domain.SearchQuery) ([]domain.Document, error) {
	s.called = true
	s.got = q
	return s.docs, s.err
}

// stubPrompter marks each stage with a distinct prefix so the fake completer
// can route responses without depending on real prompt wording
type stubPrompter struct{}

func (stubPrompter) Theme(req domain.Request) string { return "theme: " + req.Query }
func (stubPrompter) FilterChunk(req domain.Request, theme string, docs []domain.Document, part, total int) string {
	return fmt.Sprintf("filter %d/%d", part, total)
}
func (stubPrompter) AnalyzeChunk(req domain.Request, theme string, kept []domain.FilteredDocument, part, total int) string {
	return fmt.Sprintf("analyze %d/%d", part, total)
}
func (stubPrompter) Synthesize(req domain.Request, theme, joined string) string {
	return "synthesize\n" + joined
}

type fakeCompleter struct {
	contextSize int

	themeOut string
	themeErr error

	filterOut  func(call int) (string, error)
	analyzeOut func(call int) (string, error)
	synthOut   string
	synthErr   error

	filterCalls  int
	analyzeCalls int
	synthCalls   int
	synthPrompt  string
}

func (f *fakeCompleter) MaxContextSize() int { return f.contextSize }

func (f *fakeCompleter) Complete(ctx context.Context, prompt, userContext string) (string, error) {
	switch {
	case strings.HasPrefix(prompt, "theme:"):
		return f.themeOut, f.themeErr
	case strings.HasPrefix(prompt, "filter"):
		f.filterCalls++
		return f.filterOut(f.filterCalls)
	case strings.HasPrefix(prompt, "analyze"):
		f.analyzeCalls++
		return f.analyzeOut(f.analyzeCalls)
	case strings.HasPrefix(prompt, "synthesize"):
		f.synthCalls++
		f.synthPrompt = prompt
		return f.synthOut, f.synthErr
	}
	return "", fmt.Errorf("unexpected prompt: %s", prompt)
}

type memReports struct {
	saved   []*domain.Report
	saveErr error
}

func (m *memReports) Save(ctx context.Context, r *domain.Report) error {
	saved := *r
	m.saved = append(m.saved, &saved)
	return m.saveErr
}

func (m *memReports) Paginate(ctx context.Context, category string, page, pageSize int) ([]*domain.Report, error) {
	return m.saved, nil
}

func keptJSON(n int) func(int) (string, error) {
	return func(int) (string, error) {
		var items []string
		for i := 0; i < n; i++ {
			items = append(items, fmt.Sprintf(`{"text":"t%d","url":"u%d"}`, i, i))
		}
		return "[" + strings.Join(items, ",") + "]", nil
	}
}

func newTestService(searcher *stubSearcher, completer *fakeCompleter, reports *memReports) *Service {
	svc := &Service{
		Embedder:  stubEmbedder{vec: []float32{0.1, 0.2}},
		Searcher:  searcher,
		Completer: completer,
		Tokens:    wordEstimator{},
		Prompts:   stubPrompter{},
		Clock:     fixedClock{t: time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)},
		Log:       logger.NewNop(),
		Opts:      Options{MinScore: 0.30, SearchLimit: 1000, SafetyFactor: 0.8},
	}
	if reports != nil {
		svc.Reports = reports
	}
	return svc
}

func TestRunSingleChunkPassesThroughWithoutSynthesis(t *testing.T) {
	// 3 docs x 200 tokens against a 1250 * 0.8 = 1000 token budget: one chunk
	searcher := &stubSearcher{docs: []domain.Document{doc("a", 200), doc("b", 200), doc("c", 200)}}
	completer := &fakeCompleter{
		contextSize: 1250,
		themeOut:    "skins market",
		filterOut:   keptJSON(2),
		analyzeOut:  func(int) (string, error) { return "section one", nil },
	}
	reports := &memReports{}
	svc := newTestService(searcher, completer, reports)

	report := svc.Run(context.Background(), RunCommand{Category: "games", Query: "what moved skins"})

	assert.Equal(t, domain.StatusSuccess, report.Status)
	assert.Equal(t, "skins market", report.Theme)
	assert.Equal(t, 3, report.MaterialsCount)
	assert.Equal(t, "section one", report.Narrative)
	assert.Empty(t, report.ErrorMessage)

	assert.Equal(t, 1, completer.filterCalls)
	assert.Equal(t, 1, completer.analyzeCalls)
	assert.Equal(t, 0, completer.synthCalls, "a single analysis must pass through unmerged")

	require.Len(t, reports.saved, 1)
	assert.Equal(t, domain.StatusSuccess, reports.saved[0].Status)
}

func TestRunNoMaterialsIsTerminal(t *testing.T) {
	searcher := &stubSearcher{}
	completer := &fakeCompleter{contextSize: 1250, themeOut: "anything"}
	reports := &memReports{}
	svc := newTestService(searcher, completer, reports)

	report := svc.Run(context.Background(), RunCommand{Query: "niche topic"})

	assert.Equal(t, domain.StatusError, report.Status)
	assert.Contains(t, report.ErrorMessage, "no relevant materials found")
	assert.Equal(t, 0, report.MaterialsCount)
	assert.Equal(t, 0, completer.filterCalls)
	assert.Equal(t, 0, completer.analyzeCalls)

	require.Len(t, reports.saved, 1)
	assert.Equal(t, domain.StatusError, reports.saved[0].Status)
}

func TestRunSkipsChunkDroppedByFilter(t *testing.T) {
	// 3 docs x 400 tokens against a 500 * 0.8 = 400 token budget: 3 chunks
	searcher := &stubSearcher{docs: []domain.Document{doc("a", 400), doc("b", 400), doc("c", 400)}}
	completer := &fakeCompleter{
		contextSize: 500,
		themeOut:    "theme",
		filterOut: func(call int) (string, error) {
			if call == 2 {
				return "[]", nil
			}
			return keptJSON(1)(call)
		},
		analyzeOut: func(call int) (string, error) { return fmt.Sprintf("A%d", call), nil },
		synthOut:   "merged report",
	}
	svc := newTestService(searcher, completer, nil)

	report := svc.Run(context.Background(), RunCommand{Query: "q"})

	assert.Equal(t, domain.StatusSuccess, report.Status)
	assert.Equal(t, "merged report", report.Narrative)
	assert.Equal(t, 3, completer.filterCalls)
	assert.Equal(t, 2, completer.analyzeCalls)
	assert.Equal(t, 1, completer.synthCalls)
	// surviving analyses keep chunk order
	assert.Contains(t, completer.synthPrompt, "A1\n\n---\n\nA2")
}

func TestRunUnparseableFilterCountsAsEmpty(t *testing.T) {
	searcher := &stubSearcher{docs: []domain.Document{doc("a", 100)}}
	completer := &fakeCompleter{
		contextSize: 1250,
		themeOut:    "theme",
		filterOut: func(int) (string, error) {
			return "I believe none of these are relevant.", nil
		},
	}
	svc := newTestService(searcher, completer, nil)

	report := svc.Run(context.Background(), RunCommand{Query: "q"})

	assert.Equal(t, domain.StatusError, report.Status)
	assert.Contains(t, report.ErrorMessage, "no relevant materials left after filtering")
	assert.Equal(t, 0, completer.analyzeCalls)
}

func TestRunAcceptsFencedFilterResponse(t *testing.T) {
	searcher := &stubSearcher{docs: []domain.Document{doc("a", 100)}}
	completer := &fakeCompleter{
		contextSize: 1250,
		themeOut:    "theme",
		filterOut: func(int) (string, error) {
			return "```json\n[{\"text\":\"t\",\"url\":\"u\"}]\n```", nil
		},
		analyzeOut: func(int) (string, error) { return "section", nil },
	}
	svc := newTestService(searcher, completer, nil)

	report := svc.Run(context.Background(), RunCommand{Query: "q"})

	assert.Equal(t, domain.StatusSuccess, report.Status)
	assert.Equal(t, "section", report.Narrative)
}

func TestRunThemeFailureIsFatal(t *testing.T) {
	searcher := &stubSearcher{docs: []domain.Document{doc("a", 100)}}
	completer := &fakeCompleter{contextSize: 1250, themeErr: fmt.Errorf("api down")}
	svc := newTestService(searcher, completer, nil)

	report := svc.Run(context.Background(), RunCommand{Query: "q"})

	assert.Equal(t, domain.StatusError, report.Status)
	assert.Contains(t, report.ErrorMessage, "extract theme")
	assert.False(t, searcher.called)
}

func TestRunEmptyThemeIsFatal(t *testing.T) {
	searcher := &stubSearcher{docs: []domain.Document{doc("a", 100)}}
	completer := &fakeCompleter{contextSize: 1250, themeOut: "   "}
	svc := newTestService(searcher, completer, nil)

	report := svc.Run(context.Background(), RunCommand{Query: "q"})

	assert.Equal(t, domain.StatusError, report.Status)
	assert.False(t, searcher.called)
}

func TestRunFilterTransportErrorIsFatal(t *testing.T) {
	searcher := &stubSearcher{docs: []domain.Document{doc("a", 100)}}
	completer := &fakeCompleter{
		contextSize: 1250,
		themeOut:    "theme",
		filterOut:   func(int) (string, error) { return "", fmt.Errorf("timeout") },
	}
	svc := newTestService(searcher, completer, nil)

	report := svc.Run(context.Background(), RunCommand{Query: "q"})

	assert.Equal(t, domain.StatusError, report.Status)
	assert.Contains(t, report.ErrorMessage, "filter chunk 1")
}

func TestRunAnalyzeErrorIsFatal(t *testing.T) {
	searcher := &stubSearcher{docs: []domain.Document{doc("a", 100)}}
	completer := &fakeCompleter{
		contextSize: 1250,
		themeOut:    "theme",
		filterOut:   keptJSON(1),
		analyzeOut:  func(int) (string, error) { return "", fmt.Errorf("overloaded") },
	}
	svc := newTestService(searcher, completer, nil)

	report := svc.Run(context.Background(), RunCommand{Query: "q"})

	assert.Equal(t, domain.StatusError, report.Status)
	assert.Contains(t, report.ErrorMessage, "analyze chunk 1")
}

func TestRunSynthesizeErrorIsFatal(t *testing.T) {
	searcher := &stubSearcher{docs: []domain.Document{doc("a", 400), doc("b", 400)}}
	completer := &fakeCompleter{
		contextSize: 500,
		themeOut:    "theme",
		filterOut:   keptJSON(1),
		analyzeOut:  func(call int) (string, error) { return fmt.Sprintf("A%d", call), nil },
		synthErr:    fmt.Errorf("bad gateway"),
	}
	svc := newTestService(searcher, completer, nil)

	report := svc.Run(context.Background(), RunCommand{Query: "q"})

	assert.Equal(t, domain.StatusError, report.Status)
	assert.Contains(t, report.ErrorMessage, "synthesize report")
}

func TestRunDeduplicatesRetrievedURLs(t *testing.T) {
	searcher := &stubSearcher{docs: []domain.Document{
		doc("a", 100), doc("b", 100), doc("a", 100), doc("c", 100), doc("b", 100),
	}}
	completer := &fakeCompleter{
		contextSize: 1250,
		themeOut:    "theme",
		filterOut:   keptJSON(1),
		analyzeOut:  func(int) (string, error) { return "section", nil },
	}
	svc := newTestService(searcher, completer, nil)

	report := svc.Run(context.Background(), RunCommand{Query: "q"})

	assert.Equal(t, domain.StatusSuccess, report.Status)
	assert.Equal(t, 3, report.MaterialsCount)
}

func TestRunCommandOverridesRetrievalDefaults(t *testing.T) {
	searcher := &stubSearcher{docs: []domain.Document{doc("a", 100)}}
	completer := &fakeCompleter{
		contextSize: 1250,
		themeOut:    "theme",
		filterOut:   keptJSON(1),
		analyzeOut:  func(int) (string, error) { return "section", nil },
	}
	svc := newTestService(searcher, completer, nil)

	svc.Run(context.Background(), RunCommand{
		Category:    "games",
		Query:       "q",
		AsOfDate:    "2026-08-29",
		MinScore:    0.55,
		SearchLimit: 42,
	})

	assert.Equal(t, "games", searcher.got.Category)
	assert.Equal(t, 0.55, searcher.got.MinScore)
	assert.Equal(t, 42, searcher.got.Limit)
	assert.Equal(t, "2026-08-29", searcher.got.AsOfDate)

	svc.Run(context.Background(), RunCommand{Query: "q"})
	assert.Equal(t, 0.30, searcher.got.MinScore)
	assert.Equal(t, 1000, searcher.got.Limit)
}

func TestRunSurvivesReportSaveFailure(t *testing.T) {
	searcher := &stubSearcher{docs: []domain.Document{doc("a", 100)}}
	completer := &fakeCompleter{
		contextSize: 1250,
		themeOut:    "theme",
		filterOut:   keptJSON(1),
		analyzeOut:  func(int) (string, error) { return "section", nil },
	}
	reports := &memReports{saveErr: fmt.Errorf("db down")}
	svc := newTestService(searcher, completer, reports)

	report := svc.Run(context.Background(), RunCommand{Query: "q"})

	assert.Equal(t, domain.StatusSuccess, report.Status)
}

func TestRunWithoutRepositoryDoesNotPanic(t *testing.T) {
	searcher := &stubSearcher{}
	completer := &fakeCompleter{contextSize: 1250, themeOut: "theme"}
	svc := newTestService(searcher, completer, nil)

	report := svc.Run(context.Background(), RunCommand{Query: "q"})
	assert.Equal(t, domain.StatusError, report.Status)
}
