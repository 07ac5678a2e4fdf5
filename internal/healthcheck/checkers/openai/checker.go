package openaichecker

import (
	"context"
	"strings"

	"github.com/microscanai/microscan/internal/healthcheck"
)

const checkTypeOpenAIConfig = "openai.config"

// Checker reports whether the completion provider is configured.
// It never calls the provider.
type Checker struct {
	apiKey string
	model  string
}

// NewChecker creates a provider configuration checker.
func NewChecker(apiKey, model string) *Checker {
	return &Checker{apiKey: strings.TrimSpace(apiKey), model: strings.TrimSpace(model)}
}

// ListChecks evaluates the provider configuration.
func (c *Checker) ListChecks(ctx context.Context) []healthcheck.CheckResult {
	item := healthcheck.CheckResult{
		ID:       checkTypeOpenAIConfig,
		Type:     checkTypeOpenAIConfig,
		Status:   healthcheck.StatusOK,
		Summary:  "Completion provider is configured.",
		Metadata: map[string]any{"model": c.model},
	}
	switch {
	case c.apiKey == "":
		item.Status = healthcheck.StatusError
		item.Summary = "Completion provider API key is missing."
	case c.model == "":
		item.Status = healthcheck.StatusWarn
		item.Summary = "Completion model is not set."
	}
	return []healthcheck.CheckResult{item}
}
