package registry

import (
	"fmt"
	"sync"
	"time"
)

// tokenClock produces timestamp tokens of the form yyddmmHHMMSS followed by
// six digits of microseconds. Consecutive tokens are strictly increasing in
// time even when the wall clock does not advance between calls.
type tokenClock struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time
}

func newTokenClock(now func() time.Time) *tokenClock {
	if now == nil {
		now = time.Now
	}
	return &tokenClock{now: now}
}

// Token returns the next unique timestamp token.
func (c *tokenClock) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.now().Truncate(time.Microsecond)
	if !t.After(c.last) {
		t = c.last.Add(time.Microsecond)
	}
	c.last = t

	return formatToken(t)
}

func formatToken(t time.Time) string {
	return t.Format("060201150405") + fmt.Sprintf("%06d", t.Nanosecond()/1000)
}
