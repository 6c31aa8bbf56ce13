package limiter

import (
	"context"
	"sync"
	"time"

	"github.com/reeler/reeler/pkg/logger"
)

var log = logger.Get("RateLimiter")

type Config struct {
	WindowSeconds int `toml:"window_seconds" env:"RATE_LIMIT_WINDOW_SECONDS" env-default:"30"`
}

// Limiter enforces a minimum interval between extraction attempts from
// the same client identity. It is the only shared mutable state in the
// request path, so the check-then-record step for a given identity is
// performed atomically under the mutex - two concurrent requests from
// one client can never both observe "not limited".
type Limiter struct {
	mu           sync.Mutex
	window       time.Duration
	lastAccepted map[string]time.Time
}

func New(config Config) *Limiter {
	return &Limiter{
		window:       time.Duration(config.WindowSeconds) * time.Second,
		lastAccepted: make(map[string]time.Time),
	}
}

// Admit decides whether the client identified by clientID may perform an
// extraction at the instant 'now'. On admission the timestamp for the
// identity is recorded; a rejected call leaves the stored timestamp
// untouched and returns the whole seconds (rounded up) the client must
// wait before retrying.
func (limiter *Limiter) Admit(clientID string, now time.Time) (bool, int) {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()

	if last, ok := limiter.lastAccepted[clientID]; ok {
		if elapsed := now.Sub(last); elapsed < limiter.window {
			remaining := limiter.window - elapsed
			return false, int((remaining + time.Second - 1) / time.Second)
		}
	}

	limiter.lastAccepted[clientID] = now
	return true, 0
}

// Run periodically sweeps entries older than the window so the identity
// map stays bounded by the number of *recently active* clients, rather
// than growing for the lifetime of the process. Entries older than the
// window can never cause a rejection, so removing them preserves the
// admission semantics exactly.
//
// To stop the limiter, cancel the provided context.
func (limiter *Limiter) Run(ctx context.Context) error {
	ticker := time.NewTicker(limiter.window * 4)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			limiter.sweep(time.Now())
		case <-ctx.Done():
			return nil
		}
	}
}

func (limiter *Limiter) sweep(now time.Time) {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()

	before := len(limiter.lastAccepted)
	for clientID, last := range limiter.lastAccepted {
		if now.Sub(last) >= limiter.window {
			delete(limiter.lastAccepted, clientID)
		}
	}

	if removed := before - len(limiter.lastAccepted); removed > 0 {
		log.Emit(logger.DEBUG, "Swept %d stale rate limit entries (%d remain)\n", removed, len(limiter.lastAccepted))
	}
}

// Size returns the number of identities currently tracked.
func (limiter *Limiter) Size() int {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()

	return len(limiter.lastAccepted)
}
