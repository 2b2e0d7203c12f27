package oracle

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/insightmill/panelcraft/internal/survey"
)

const systemPrompt = "You are a quantitative market research engine that models UK consumer panels. Respond with strict JSON only."

type llmFailureClass int

const (
	failureNone llmFailureClass = iota
	failureParse
	failureEmpty
	failureTimeout
	failureRateLimit
	failureServer
	failureClient
)

// LLMCaller is the narrow surface the rest of the service depends on; tests
// substitute a canned implementation.
type LLMCaller interface {
	GenerateJSON(ctx context.Context, prompt string) (string, error)
}

type AnthropicCaller struct {
	messages AnthropicMessager
}

type AnthropicMessager interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

type AnthropicClientCreator func(apiKey string) AnthropicMessager

func defaultAnthropicCreator(apiKey string) AnthropicMessager {
	c := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &c.Messages
}

var newAnthropicClient AnthropicClientCreator = defaultAnthropicCreator

func NewAnthropicCallerFromEnv() (*AnthropicCaller, error) {
	apiKey := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY"))
	if apiKey == "" {
		return nil, errors.New("ANTHROPIC_API_KEY not configured")
	}
	return &AnthropicCaller{messages: newAnthropicClient(apiKey)}, nil
}

func (a *AnthropicCaller) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	resp, err := a.messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.ModelClaudeSonnet4_20250514,
		MaxTokens:   8192,
		System:      []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
		Temperature: anthropic.Float(1),
	})
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	return sb.String(), nil
}

const fetchAttempts = 3

// FetchPanelSpec asks the oracle for per-question probability
// specifications. Transport failures classified as transient are retried
// with backoff; parse failures are retried with corrective feedback. On
// exhaustion the error is returned so the caller can decide whether to
// proceed with an empty spec.
func FetchPanelSpec(ctx context.Context, caller LLMCaller, projectTitle, projectDescription string, questions []survey.Question) (PanelSpec, error) {
	prompt := BuildPrompt(projectTitle, projectDescription, questions)
	feedback := ""
	for attempt := 1; attempt <= fetchAttempts; attempt++ {
		fullPrompt := prompt
		if feedback != "" {
			fullPrompt += "\n\n" + feedback
		}

		raw, err := caller.GenerateJSON(ctx, fullPrompt)
		if err != nil {
			class := classifyTransportError(err)
			if class == failureTimeout || class == failureRateLimit || class == failureServer {
				if attempt < fetchAttempts {
					time.Sleep(backoffDelay(attempt))
					continue
				}
			}
			return PanelSpec{}, fmt.Errorf("panel spec transport failure: %w", err)
		}

		raw = strings.TrimSpace(raw)
		if raw == "" {
			if attempt < fetchAttempts {
				feedback = "Your previous response was empty. Respond with valid JSON."
				continue
			}
			return PanelSpec{}, errors.New("panel spec failed: empty response")
		}

		spec, err := ParsePanelSpec(raw)
		if err != nil {
			if attempt < fetchAttempts {
				feedback = "Your previous response was not valid JSON. Respond with only valid JSON."
				continue
			}
			return PanelSpec{}, fmt.Errorf("panel spec failed json parse: %w", err)
		}
		return spec, nil
	}
	return PanelSpec{}, errors.New("panel spec failed after retries")
}

func classifyTransportError(err error) llmFailureClass {
	msg := strings.ToLower(err.Error())
	if errors.Is(err, context.DeadlineExceeded) {
		return failureTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return failureTimeout
	}
	switch {
	case strings.Contains(msg, "429"):
		return failureRateLimit
	case strings.Contains(msg, " 5") || strings.Contains(msg, "status code: 5") || strings.Contains(msg, "server error"):
		return failureServer
	case strings.Contains(msg, " 4") || strings.Contains(msg, "status code: 4"):
		return failureClient
	default:
		return failureServer
	}
}

func backoffDelay(attempt int) time.Duration {
	if attempt <= 1 {
		return 1 * time.Second
	}
	return 2 * time.Second
}
