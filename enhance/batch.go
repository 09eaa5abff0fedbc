package enhance

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// EnhanceAll runs the pipeline over every body, at most limit pages at a
// time (limit <= 0 means no cap). Results keep input order. The first
// failure cancels the remaining pages and is returned; partially enhanced
// siblings are discarded.
func (p *Pipeline) EnhanceAll(ctx context.Context, bodies []Body, limit int) ([]Body, error) {
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	out := make([]Body, len(bodies))
	for i, b := range bodies {
		g.Go(func() error {
			eb, err := p.EnhanceBody(ctx, b)
			if err != nil {
				return fmt.Errorf("body %d: %w", i, err)
			}
			out[i] = eb
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
