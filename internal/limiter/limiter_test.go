package limiter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func Test_Admit(t *testing.T) {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("First request admitted", func(t *testing.T) {
		limiter := New(Config{WindowSeconds: 30})

		admitted, retryAfter := limiter.Admit("1.2.3.4", base)
		assert.True(t, admitted)
		assert.Zero(t, retryAfter)
	})

	t.Run("Second request within window rejected", func(t *testing.T) {
		limiter := New(Config{WindowSeconds: 30})
		limiter.Admit("1.2.3.4", base)

		admitted, retryAfter := limiter.Admit("1.2.3.4", base.Add(time.Second*10))
		assert.False(t, admitted)
		assert.Equal(t, 20, retryAfter)
	})

	t.Run("Retry after rounds up to whole seconds", func(t *testing.T) {
		limiter := New(Config{WindowSeconds: 30})
		limiter.Admit("1.2.3.4", base)

		admitted, retryAfter := limiter.Admit("1.2.3.4", base.Add(time.Second*29+time.Millisecond*500))
		assert.False(t, admitted)
		assert.Equal(t, 1, retryAfter)
	})

	t.Run("Request after window admitted", func(t *testing.T) {
		limiter := New(Config{WindowSeconds: 30})
		limiter.Admit("1.2.3.4", base)

		admitted, _ := limiter.Admit("1.2.3.4", base.Add(time.Second*30))
		assert.True(t, admitted)
	})

	t.Run("Rejection does not extend the window", func(t *testing.T) {
		limiter := New(Config{WindowSeconds: 30})
		limiter.Admit("1.2.3.4", base)

		admitted, _ := limiter.Admit("1.2.3.4", base.Add(time.Second*20))
		assert.False(t, admitted)

		// Window is measured from the original admission, not the
		// rejected attempt.
		admitted, _ = limiter.Admit("1.2.3.4", base.Add(time.Second*31))
		assert.True(t, admitted)
	})

	t.Run("Identities are independent", func(t *testing.T) {
		limiter := New(Config{WindowSeconds: 30})
		limiter.Admit("1.2.3.4", base)

		admitted, _ := limiter.Admit("5.6.7.8", base.Add(time.Second))
		assert.True(t, admitted)
	})
}

func Test_Sweep(t *testing.T) {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	limiter := New(Config{WindowSeconds: 30})
	limiter.Admit("stale", base)
	limiter.Admit("active", base.Add(time.Second*20))
	assert.Equal(t, 2, limiter.Size())

	limiter.sweep(base.Add(time.Second * 35))
	assert.Equal(t, 1, limiter.Size())

	// The surviving entry still rejects within its window.
	admitted, _ := limiter.Admit("active", base.Add(time.Second*40))
	assert.False(t, admitted)

	// The swept entry behaves like a brand new client.
	admitted, _ = limiter.Admit("stale", base.Add(time.Second*36))
	assert.True(t, admitted)
}
