package sources

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wikiai/backend/internal/metrics"
	"github.com/wikiai/backend/internal/trust"
	"github.com/wikiai/backend/pkg/logger"
)

const (
	defaultInspectBudget = 20 * time.Second
	maxConcurrentFetches = 5
)

type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (string, error)
}

type Analyzer struct {
	fetcher       PageFetcher
	inspectBudget time.Duration
}

type Option func(*Analyzer)

// WithInspectBudget bounds how long one request may spend fetching pages.
func WithInspectBudget(d time.Duration) Option {
	return func(a *Analyzer) {
		a.inspectBudget = d
	}
}

func NewAnalyzer(fetcher PageFetcher, opts ...Option) *Analyzer {
	a := &Analyzer{
		fetcher:       fetcher,
		inspectBudget: defaultInspectBudget,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze scores every URL, keeping input order. With inspect, page text feeds the content bonus;
// a page that cannot be fetched within the budget is scored on its URL alone.
func (a *Analyzer) Analyze(ctx context.Context, urls []string, inspect bool) []trust.Assessment {
	cleaned := make([]string, len(urls))
	for i, u := range urls {
		cleaned[i] = strings.TrimSpace(u)
	}

	contents := make([]string, len(cleaned))
	if inspect && a.fetcher != nil {
		a.inspect(ctx, cleaned, contents)
	}

	assessments := make([]trust.Assessment, 0, len(cleaned))
	for i, u := range cleaned {
		assessment := trust.Assess(u, contents[i])
		metrics.SourceTrustScore.Observe(assessment.TrustScore)
		assessments = append(assessments, assessment)
	}

	logger.Debug("Sources analyzed", zap.Int("count", len(assessments)), zap.Bool("inspect", inspect))

	return assessments
}

func (a *Analyzer) inspect(ctx context.Context, urls, contents []string) {
	ctx, cancel := context.WithTimeout(ctx, a.inspectBudget)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFetches)

	for i, u := range urls {
		i, u := i, u
		g.Go(func() error {
			text, err := a.fetcher.Fetch(gctx, u)
			if err != nil {
				logger.Warn("Failed to inspect source, scoring URL only", zap.String("url", u), zap.Error(err))
				return nil
			}
			contents[i] = text
			return nil
		})
	}
	_ = g.Wait()
}
