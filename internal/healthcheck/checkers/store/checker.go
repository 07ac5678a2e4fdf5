package storechecker

import (
	"context"
	"log/slog"
	"time"

	"github.com/microscanai/microscan/internal/healthcheck"
)

const (
	checkTypeStorePing = "store.ping"
	defaultTimeout     = 3 * time.Second
)

// Pinger is the part of the store the checker needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Checker verifies the document store answers.
type Checker struct {
	logger  *slog.Logger
	pinger  Pinger
	driver  string
	timeout time.Duration
}

// NewChecker creates a store health checker.
func NewChecker(log *slog.Logger, pinger Pinger, driver string) *Checker {
	if log == nil {
		log = slog.Default()
	}
	return &Checker{
		logger:  log.With(slog.String("checker", "healthcheck_store")),
		pinger:  pinger,
		driver:  driver,
		timeout: defaultTimeout,
	}
}

// ListChecks pings the store once.
func (c *Checker) ListChecks(ctx context.Context) []healthcheck.CheckResult {
	item := healthcheck.CheckResult{
		ID:       checkTypeStorePing,
		Type:     checkTypeStorePing,
		Status:   healthcheck.StatusOK,
		Summary:  "Store is reachable.",
		Metadata: map[string]any{"driver": c.driver},
	}
	if c.pinger == nil {
		item.Status = healthcheck.StatusWarn
		item.Summary = "Store checker is not configured."
		return []healthcheck.CheckResult{item}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	started := time.Now()
	err := c.pinger.Ping(ctx)
	item.Metadata["latency_ms"] = time.Since(started).Milliseconds()
	if err != nil {
		c.logger.Warn("store ping failed", slog.String("driver", c.driver), slog.Any("error", err))
		item.Status = healthcheck.StatusError
		item.Summary = "Store is unreachable."
		item.Detail = err.Error()
	}
	return []healthcheck.CheckResult{item}
}
