package digest

import (
	"context"
	"time"

	"github.com/avelinov/trendwatch/internal/application"
	analysisapp "github.com/avelinov/trendwatch/internal/application/analysis"
	analysisdomain "github.com/avelinov/trendwatch/internal/domain/analysis"
	subsdomain "github.com/avelinov/trendwatch/internal/domain/subscriptions"
	"github.com/avelinov/trendwatch/internal/platform/logger"
)

// Runner is the slice of the analysis service the digest needs
type Runner interface {
	Run(ctx context.Context, cmd analysisapp.RunCommand) analysisdomain.Report
}

// Options for the digest retrieval policy: a high limit because a daily
// digest favors completeness over responsiveness.
type Options struct {
	MinScore    float64
	SearchLimit int
}

// Service runs the scheduled daily digests: one pipeline run per distinct
// subscribed category, for the current date.
type Service struct {
	Subs     subsdomain.Repository
	Analysis Runner
	Clock    application.Clock
	Log      *logger.Logger
	Opts     Options
}

// RunDaily analyzes today's materials for every category with at least one
// enabled subscription. A failed category never aborts the others.
func (s *Service) RunDaily(ctx context.Context) {
	subs, err := s.Subs.ListEnabled(ctx)
	if err != nil {
		s.Log.Error("list subscriptions for digest", "error", err)
		return
	}
	if len(subs) == 0 {
		s.Log.Info("digest run skipped, no enabled subscriptions")
		return
	}

	date := s.Clock.Now().Format(time.DateOnly)
	seen := make(map[string]struct{}, len(subs))
	for _, sub := range subs {
		if sub.Category == "" {
			continue
		}
		if _, ok := seen[sub.Category]; ok {
			continue
		}
		seen[sub.Category] = struct{}{}

		report := s.RunFor(ctx, sub.Category, date)
		if report.Status == analysisdomain.StatusError {
			s.Log.Warn("digest category failed",
				"category", sub.Category, "date", date, "error", report.ErrorMessage)
			continue
		}
		s.Log.Info("digest category done",
			"category", sub.Category, "date", date, "materials", report.MaterialsCount)
	}
}

// RunFor produces one digest report for a category and date. Also backs the
// manual trigger endpoint.
func (s *Service) RunFor(ctx context.Context, category, date string) analysisdomain.Report {
	if date == "" {
		date = s.Clock.Now().Format(time.DateOnly)
	}
	return s.Analysis.Run(ctx, analysisapp.RunCommand{
		Category:    category,
		Query:       "Summarize the key events, demand shifts and market changes for " + category + " on " + date,
		AsOfDate:    date,
		MinScore:    s.Opts.MinScore,
		SearchLimit: s.Opts.SearchLimit,
	})
}
