package lifecycle

import (
	"context"
	"fmt"
	"time"
)

// StartResync reloads the store from the bridge every interval until ctx is
// done. A failed reload keeps the previous contents.
func StartResync(ctx context.Context, c *Controller, interval time.Duration) error {
	if c == nil {
		return fmt.Errorf("controller required")
	}
	if interval <= 0 {
		return fmt.Errorf("resync interval must be positive")
	}
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if _, err := c.Load(ctx); err != nil {
					c.logger.Warningf("resync failed: %v", err)
				}
			}
		}
	}()
	return nil
}
