package codec

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"todo-ledger/core/token"
)

// Result is the outcome of decrypting one item of a batch.
type Result struct {
	Text string
	Err  error
}

// DecryptAll decrypts every ciphertext independently using up to workers
// goroutines. results[i] always corresponds to ciphertexts[i]. A per-item
// failure never aborts the batch; only an unresolvable key scope does, since
// no item could succeed without it.
func (c *Codec) DecryptAll(ctx context.Context, ciphertexts [][]byte, scope token.Scope, workers int) ([]Result, error) {
	if workers <= 0 {
		workers = 1
	}
	if _, err := c.aead(ctx, scope); err != nil {
		return nil, err
	}

	results := make([]Result, len(ciphertexts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, ct := range ciphertexts {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			text, err := c.Decrypt(gctx, ct, scope)
			if err != nil && errors.Is(err, token.ErrKeyUnavailable) {
				return err
			}
			results[i] = Result{Text: text, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
