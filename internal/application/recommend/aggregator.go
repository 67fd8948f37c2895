package recommend

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/platewise/engine/internal/domain/profile"
	"github.com/platewise/engine/internal/domain/recommendation"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// Aggregator runs an ordered list of strategies and merges their output.
type Aggregator struct {
	strategies []Strategy
}

// NewAggregator orders the given strategies by recommendation.Priority.
// Strategies with unknown types are appended in the order given.
func NewAggregator(strategies ...Strategy) *Aggregator {
	ordered := make([]Strategy, 0, len(strategies))
	placed := make(map[int]bool, len(strategies))
	for _, t := range recommendation.Priority {
		for i, s := range strategies {
			if !placed[i] && s.Type() == t {
				ordered = append(ordered, s)
				placed[i] = true
			}
		}
	}
	for i, s := range strategies {
		if !placed[i] {
			ordered = append(ordered, s)
		}
	}
	return &Aggregator{strategies: ordered}
}

// Strategies returns the strategies in priority order.
func (a *Aggregator) Strategies() []Strategy {
	return a.strategies
}

// Aggregate runs every strategy concurrently, each into its own slot, and
// merges the slots with Merge. Any strategy error fails the whole call.
func (a *Aggregator) Aggregate(ctx context.Context, p *profile.UserProfile, opts Options) ([]recommendation.Recommendation, error) {
	ctx, span := tracer.Start(ctx, "recommend.Aggregate")
	defer span.End()

	results := make([][]recommendation.Recommendation, len(a.strategies))
	g, gctx := errgroup.WithContext(ctx)
	for i, s := range a.strategies {
		i, s := i, s
		g.Go(func() error {
			recs, err := s.Generate(gctx, p, opts)
			if err != nil {
				return fmt.Errorf("strategy %s: %w", s.Type(), err)
			}
			results[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	merged := Merge(results, opts.Limit)
	span.SetAttributes(attribute.Int("recommend.merged", len(merged)))
	return merged, nil
}

// Merge deduplicates and interleaves lists given in priority order.
//
// A single pass over the lists in priority order keeps the first occurrence
// of each catalog item, so a duplicate always carries the higher-priority
// type. The surviving lists are then interleaved round-robin, one item per
// list per round, and truncated to limit (0 means no limit).
func Merge(lists [][]recommendation.Recommendation, limit int) []recommendation.Recommendation {
	seen := make(map[uuid.UUID]bool)
	deduped := make([][]recommendation.Recommendation, len(lists))
	total := 0
	for i, list := range lists {
		for _, r := range list {
			id := r.Item.ID
			if seen[id] {
				continue
			}
			seen[id] = true
			deduped[i] = append(deduped[i], r)
			total++
		}
	}

	if limit <= 0 || limit > total {
		limit = total
	}

	out := make([]recommendation.Recommendation, 0, limit)
	for round := 0; len(out) < limit; round++ {
		progressed := false
		for _, list := range deduped {
			if round >= len(list) {
				continue
			}
			progressed = true
			out = append(out, list[round])
			if len(out) == limit {
				break
			}
		}
		if !progressed {
			break
		}
	}
	return out
}
