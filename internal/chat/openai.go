package chat

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
	"github.com/openai/openai-go/v3/shared"

	"github.com/microscanai/microscan/internal/conversation"
)

// OpenAIConfig configures the Responses API adapter.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

// OpenAIProvider calls the OpenAI Responses API. Continuation tokens are
// response ids passed back as previous_response_id.
type OpenAIProvider struct {
	client openai.Client
	model  string
	logger *slog.Logger
}

// NewOpenAIProvider builds a provider from cfg. Retries are disabled and an
// empty model falls back to gpt-5-nano.
func NewOpenAIProvider(log *slog.Logger, cfg OpenAIConfig) *OpenAIProvider {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(base, "/")+"/"))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gpt-5-nano"
	}
	return &OpenAIProvider{
		client: openai.NewClient(opts...),
		model:  model,
		logger: log.With(slog.String("provider", "openai")),
	}
}

// Complete sends one Responses request. A non-empty continuation token is
// passed as previous_response_id and the returned id is the next token.
func (p *OpenAIProvider) Complete(ctx context.Context, req Request) (Result, error) {
	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(p.model),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: toResponseInput(req.Input),
		},
	}
	if req.Instructions != "" {
		params.Instructions = openai.String(req.Instructions)
	}
	if req.ContinuationToken != "" {
		params.PreviousResponseID = openai.String(req.ContinuationToken)
	}
	if req.MaxOutputTokens > 0 {
		params.MaxOutputTokens = openai.Int(req.MaxOutputTokens)
	}
	if req.Effort != "" {
		params.Reasoning = shared.ReasoningParam{Effort: shared.ReasoningEffort(req.Effort)}
	}

	p.logger.Debug("responses request",
		slog.String("model", p.model),
		slog.Int("blocks", len(req.Input)),
		slog.Bool("continued", req.ContinuationToken != ""),
	)
	resp, err := p.client.Responses.New(ctx, params)
	if err != nil {
		return Result{}, fmt.Errorf("openai responses: %w", err)
	}
	return Result{ID: resp.ID, Text: resp.OutputText()}, nil
}

// toResponseInput maps blocks onto Responses input items. Text-only blocks
// are sent as plain string content, which the API accepts for both user and
// assistant roles.
func toResponseInput(blocks []Block) responses.ResponseInputParam {
	items := make(responses.ResponseInputParam, 0, len(blocks))
	for _, b := range blocks {
		role := responses.EasyInputMessageRoleUser
		if b.Role == conversation.RoleAssistant {
			role = responses.EasyInputMessageRoleAssistant
		}
		if text, ok := textOnly(b); ok {
			items = append(items, responses.ResponseInputItemParamOfMessage(text, role))
			continue
		}
		content := make(responses.ResponseInputMessageContentListParam, 0, len(b.Parts))
		for _, part := range b.Parts {
			if part.IsImage() {
				detail := responses.ResponseInputImageDetail(part.Detail)
				if detail == "" {
					detail = responses.ResponseInputImageDetailAuto
				}
				content = append(content, responses.ResponseInputContentUnionParam{
					OfInputImage: &responses.ResponseInputImageParam{
						ImageURL: openai.String(part.ImageURL),
						Detail:   detail,
					},
				})
				continue
			}
			content = append(content, responses.ResponseInputContentUnionParam{
				OfInputText: &responses.ResponseInputTextParam{Text: part.Text},
			})
		}
		items = append(items, responses.ResponseInputItemParamOfMessage(content, role))
	}
	return items
}

func textOnly(b Block) (string, bool) {
	if len(b.Parts) != 1 || b.Parts[0].IsImage() {
		return "", false
	}
	return b.Parts[0].Text, true
}
