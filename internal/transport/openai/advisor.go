package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/pathlight/mentormatch/internal/domain"
)

const advisorSystemPrompt = "You are a mentoring advisor. Given a mentor profile and a mentee's " +
	"stated need, produce a short, actionable study plan: focus areas, a weekly schedule, " +
	"and three questions the mentee should bring to the first session."

// Advisor generates mentoring advice prose via an OpenAI-compatible
// chat-completions API. The remote call is treated as opaque and
// possibly failing; all failures surface as domain.ErrAdviceUnavailable.
type Advisor struct {
	client    *openai.Client
	model     string
	maxTokens int
	timeout   time.Duration
	logger    *zap.Logger
}

// AdvisorConfig holds the advisory generator settings.
type AdvisorConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	Timeout   time.Duration
	Logger    *zap.Logger
}

// NewAdvisor creates a chat-completions advisory generator.
func NewAdvisor(cfg *AdvisorConfig) *Advisor {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Advisor{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		timeout:   cfg.Timeout,
		logger:    cfg.Logger,
	}
}

// Advise generates a mentoring plan for the mentee query and matched mentor.
func (a *Advisor) Advise(ctx context.Context, profile domain.MentorProfile, query string) (string, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	userPrompt := fmt.Sprintf(
		"Mentor: %s\nExpertise: %s\nAbout the mentor: %s\n\nMentee need: %s",
		profile.Name,
		strings.Join(profile.Expertise, ", "),
		profile.Description,
		query,
	)

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: advisorSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	})
	if err != nil {
		a.logger.Warn("advisory generation failed", zap.Error(err))
		return "", wrapAdvisorError(err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("empty completion response: %w", domain.ErrAdviceUnavailable)
	}

	return resp.Choices[0].Message.Content, nil
}

func wrapAdvisorError(err error) error {
	wrap := domain.ErrAdviceUnavailable

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("advisor API error %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("advisor API error %d: %w", reqErr.HTTPStatusCode, wrap)
	}

	return fmt.Errorf("advisor request failed: %w", wrap)
}
