// Package generate wraps answer-generation backends (OpenAI-compatible chat
// completions, Anthropic messages, or Google Gemini) behind a single Client interface, and
// applies the parliamentary post-processing rules from package prompt.
package generate

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	sdk "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	genai "google.golang.org/genai"

	"github.com/jlkeet/pacific-hansard-rag/internal/config"
	"github.com/jlkeet/pacific-hansard-rag/internal/rag/prompt"
)

// Result carries the generated answer plus bookkeeping useful to API
// responses and observability.
type Result struct {
	Answer         string
	ModelUsed      string
	GenerationTime time.Duration
	RawResponse    string
}

// Client generates an answer from a fully-built prompt.
type Client interface {
	Generate(ctx context.Context, prompt string) (Result, error)
}

// New constructs a Client for the configured provider ("openai",
// "anthropic", or "google"). Unknown providers fall back to "openai".
func New(cfg config.GeneratorConfig, httpClient *http.Client) Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "anthropic":
		return newAnthropicClient(cfg, httpClient)
	case "google", "gemini":
		c, err := newGoogleClient(cfg, httpClient)
		if err != nil {
			return newOpenAIClient(cfg, httpClient)
		}
		return c
	default:
		return newOpenAIClient(cfg, httpClient)
	}
}

type openAIClient struct {
	sdk         sdk.Client
	model       string
	temperature float64
	timeout     time.Duration
}

func newOpenAIClient(cfg config.GeneratorConfig, httpClient *http.Client) *openAIClient {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey), option.WithHTTPClient(httpClient)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &openAIClient{
		sdk:         sdk.NewClient(opts...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		timeout:     timeout,
	}
}

func (c *openAIClient) Generate(ctx context.Context, p string) (Result, error) {
	cctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	params := sdk.ChatCompletionNewParams{
		Model: sdk.ChatModel(c.model),
		Messages: []sdk.ChatCompletionMessageParamUnion{
			sdk.UserMessage(p),
		},
		Temperature: sdk.Float(c.temperature),
	}
	comp, err := c.sdk.Chat.Completions.New(cctx, params)
	dur := time.Since(start)
	if err != nil {
		return Result{ModelUsed: c.model, GenerationTime: dur}, fmt.Errorf("generate answer: %w", err)
	}
	raw := ""
	if len(comp.Choices) > 0 {
		raw = comp.Choices[0].Message.Content
	}
	return Result{
		Answer:         prompt.PostProcessAnswer(raw),
		ModelUsed:      c.model,
		GenerationTime: dur,
		RawResponse:    raw,
	}, nil
}

type googleClient struct {
	sdk         *genai.Client
	model       string
	temperature float64
	timeout     time.Duration
}

func newGoogleClient(cfg config.GeneratorConfig, httpClient *http.Client) (*googleClient, error) {
	model := cfg.Model
	if model == "" {
		model = "gemini-1.5-flash"
	}
	httpOpts := genai.HTTPOptions{}
	if cfg.BaseURL != "" {
		httpOpts.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/") + "/"
	}
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		HTTPClient:  httpClient,
		HTTPOptions: httpOpts,
	})
	if err != nil {
		return nil, fmt.Errorf("init google generator: %w", err)
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &googleClient{sdk: client, model: model, temperature: cfg.Temperature, timeout: timeout}, nil
}

func (c *googleClient) Generate(ctx context.Context, p string) (Result, error) {
	cctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	temp := float32(c.temperature)
	contents := []*genai.Content{genai.NewContentFromParts([]*genai.Part{{Text: p}}, genai.RoleUser)}
	resp, err := c.sdk.Models.GenerateContent(cctx, c.model, contents, &genai.GenerateContentConfig{Temperature: &temp})
	dur := time.Since(start)
	if err != nil {
		return Result{ModelUsed: c.model, GenerationTime: dur}, fmt.Errorf("generate answer: %w", err)
	}
	var sbg strings.Builder
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if part != nil && !part.Thought && part.Text != "" {
				sbg.WriteString(part.Text)
			}
		}
	}
	raw := sbg.String()
	return Result{
		Answer:         prompt.PostProcessAnswer(raw),
		ModelUsed:      c.model,
		GenerationTime: dur,
		RawResponse:    raw,
	}, nil
}

// ErrGeneratorBusy is returned when the concurrency-limited client could not
// acquire a slot before the context deadline.
var ErrGeneratorBusy = fmt.Errorf("generator busy")

// limitedClient bounds the number of in-flight Generate calls to a
// configured maximum. Excess callers wait for a slot until their own context
// is done; it sets no wait limit of its own and does not cap how many
// callers may be waiting.
type limitedClient struct {
	next Client
	sem  chan struct{}
}

// WithConcurrencyLimit wraps next so that at most max calls to Generate run
// at once; additional callers queue until a slot frees or their context is
// done. max <= 0 disables the limit.
func WithConcurrencyLimit(next Client, max int) Client {
	if max <= 0 {
		return next
	}
	return &limitedClient{next: next, sem: make(chan struct{}, max)}
}

func (c *limitedClient) Generate(ctx context.Context, p string) (Result, error) {
	select {
	case c.sem <- struct{}{}:
	case <-ctx.Done():
		return Result{}, ErrGeneratorBusy
	}
	defer func() { <-c.sem }()
	return c.next.Generate(ctx, p)
}

type anthropicClient struct {
	sdk         anthropic.Client
	model       string
	maxTokens   int64
	temperature float64
	timeout     time.Duration
}

func newAnthropicClient(cfg config.GeneratorConfig, httpClient *http.Client) *anthropicClient {
	opts := []anthropicoption.RequestOption{
		anthropicoption.WithAPIKey(cfg.APIKey),
		anthropicoption.WithHTTPClient(httpClient),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, anthropicoption.WithBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")))
	}
	model := cfg.Model
	if model == "" {
		model = string(anthropic.ModelClaude3_7SonnetLatest)
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &anthropicClient{
		sdk:         anthropic.NewClient(opts...),
		model:       model,
		maxTokens:   1024,
		temperature: cfg.Temperature,
		timeout:     timeout,
	}
}

func (c *anthropicClient) Generate(ctx context.Context, p string) (Result, error) {
	cctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	msg, err := c.sdk.Messages.New(cctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   c.maxTokens,
		Temperature: anthropic.Float(c.temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(p)),
		},
	})
	dur := time.Since(start)
	if err != nil {
		return Result{ModelUsed: c.model, GenerationTime: dur}, fmt.Errorf("generate answer: %w", err)
	}
	var sb strings.Builder
	for _, block := range msg.Content {
		if v, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(v.Text)
		}
	}
	raw := sb.String()
	return Result{
		Answer:         prompt.PostProcessAnswer(raw),
		ModelUsed:      c.model,
		GenerationTime: dur,
		RawResponse:    raw,
	}, nil
}
