package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/revocity/revocity/api/config"
	"github.com/sashabaranov/go-openai"
)

// Task selects the instructions sent with an image to the AI gateway
type Task string

const (
	TaskBinAnalysis         Task = "bin_analysis"
	TaskImageValidation     Task = "image_validation"
	TaskCleanupVerification Task = "cleanup_verification"
)

var (
	// ErrAIUnavailable is returned when no AI gateway key is configured
	ErrAIUnavailable = errors.New("ai gateway not configured")
	// ErrAIRateLimited is returned when the gateway answers 429
	ErrAIRateLimited = errors.New("ai gateway rate limit exceeded")
	// ErrNoJSON is returned when a model reply holds no parseable JSON object
	ErrNoJSON = errors.New("no JSON object found in model response")
)

// Assessor sends an image and a task to the external model and returns its raw text reply
type Assessor interface {
	Assess(ctx context.Context, task Task, img *Image) (string, error)
}

// AIGateway talks to an OpenAI-compatible chat completions endpoint
type AIGateway struct {
	client *openai.Client
	config *config.Config
}

func NewAIGateway(cfg *config.Config) *AIGateway {
	var client *openai.Client
	if cfg.AIAPIKey != "" {
		clientConfig := openai.DefaultConfig(cfg.AIAPIKey)
		if cfg.AIBaseURL != "" {
			clientConfig.BaseURL = cfg.AIBaseURL
		}
		client = openai.NewClientWithConfig(clientConfig)
	}

	return &AIGateway{
		client: client,
		config: cfg,
	}
}

// Assess runs one image task and returns the model's text content
func (g *AIGateway) Assess(ctx context.Context, task Task, img *Image) (string, error) {
	if g.client == nil {
		return "", ErrAIUnavailable
	}

	systemPrompt, userPrompt, err := promptsFor(task)
	if err != nil {
		return "", err
	}

	req := openai.ChatCompletionRequest{
		Model: g.config.AIModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: userPrompt,
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL: img.DataURI(),
						},
					},
				},
			},
		},
		MaxTokens:   1500,
		Temperature: 0.1,
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(g.config.AITimeoutMS)*time.Millisecond)
	defer cancel()

	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		if isRateLimited(err) {
			return "", ErrAIRateLimited
		}
		return "", fmt.Errorf("ai gateway call failed: %w", err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("no response from ai gateway")
	}

	return resp.Choices[0].Message.Content, nil
}

func isRateLimited(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	return false
}

var (
	fencedBlock  = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")
	objectInText = regexp.MustCompile(`(?s)\{.*\}`)
)

// StripCodeFences removes a surrounding markdown code fence, if any
func StripCodeFences(content string) string {
	content = strings.TrimSpace(content)
	if m := fencedBlock.FindStringSubmatch(content); m != nil {
		return strings.TrimSpace(m[1])
	}
	return content
}

// ExtractJSONObject returns the JSON object carried by a model reply. Fenced
// replies are unwrapped first; otherwise the outermost {...} span is tried.
func ExtractJSONObject(content string) ([]byte, error) {
	cleaned := StripCodeFences(content)
	if strings.HasPrefix(cleaned, "{") && json.Valid([]byte(cleaned)) {
		return []byte(cleaned), nil
	}

	if match := objectInText.FindString(cleaned); match != "" && json.Valid([]byte(match)) {
		return []byte(match), nil
	}

	return nil, ErrNoJSON
}
