package pkgdiff

import (
	"context"

	"github.com/sourcegraph/conc/pool"
)

// Serve handles requests on up to workers goroutines (the session default
// when workers <= 0) and sends one response per request. Responses are
// not ordered. The returned channel closes once requests is closed and
// every accepted request has been answered, or once ctx ends.
func (s *Session) Serve(ctx context.Context, requests <-chan Request, workers int) <-chan Response {
	if workers <= 0 {
		workers = s.opts.Workers
	}
	out := make(chan Response)

	go func() {
		defer close(out)
		p := pool.New().WithMaxGoroutines(workers)
		defer p.Wait()

		for {
			select {
			case <-ctx.Done():
				return
			case req, ok := <-requests:
				if !ok {
					return
				}
				p.Go(func() {
					resp := s.Handle(ctx, req)
					select {
					case out <- resp:
					case <-ctx.Done():
					}
				})
			}
		}
	}()
	return out
}
