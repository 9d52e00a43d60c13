package cache

import (
	"context"
	"time"
)

// Instrumented records Prometheus metrics around another Cache.
type Instrumented struct {
	next    Cache
	backend string
}

func NewInstrumented(next Cache, backend string) *Instrumented {
	return &Instrumented{next: next, backend: backend}
}

func (c *Instrumented) Get(ctx context.Context, key string) ([]byte, bool, error) {
	start := time.Now()
	value, ok, err := c.next.Get(ctx, key)
	c.observe("get", start, err)

	switch {
	case err != nil:
	case ok:
		RequestsTotal.WithLabelValues(c.backend, "get", "hit").Inc()
	default:
		RequestsTotal.WithLabelValues(c.backend, "get", "miss").Inc()
	}
	return value, ok, err
}

func (c *Instrumented) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	start := time.Now()
	err := c.next.Set(ctx, key, value, ttl)
	c.observe("set", start, err)
	if err == nil {
		RequestsTotal.WithLabelValues(c.backend, "set", "ok").Inc()
	}
	return err
}

func (c *Instrumented) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := c.next.Delete(ctx, key)
	c.observe("delete", start, err)
	if err == nil {
		RequestsTotal.WithLabelValues(c.backend, "delete", "ok").Inc()
	}
	return err
}

func (c *Instrumented) observe(op string, start time.Time, err error) {
	RequestDuration.WithLabelValues(c.backend, op).Observe(time.Since(start).Seconds())
	if err != nil {
		RequestsTotal.WithLabelValues(c.backend, op, "error").Inc()
	}
}
