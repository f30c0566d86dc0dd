// Package openai implements the extraction Oracle interface on top of the
// OpenAI chat completions API.
package openai

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/packages/param"
	"github.com/openai/openai-go/v2/shared"

	"github.com/tagus/contactgraph/pkg/interfaces"
	"github.com/tagus/contactgraph/pkg/logging"
	"github.com/tagus/contactgraph/pkg/retry"
)

// OpenAIClient implements the Oracle interface for OpenAI.
type OpenAIClient struct {
	// Client is the underlying API client; exported so tests can swap in a
	// client pointed at a mock server.
	Client openai.Client

	Model         string
	temperature   float64
	logger        logging.Logger
	retryExecutor *retry.Executor

	requestOptions []option.RequestOption
}

// Option represents an option for configuring the OpenAI client.
type Option func(*OpenAIClient)

// WithModel sets the model.
func WithModel(model string) Option {
	return func(c *OpenAIClient) {
		c.Model = model
	}
}

// WithTemperature sets the default sampling temperature; per-call
// interfaces.WithTemperature overrides it.
func WithTemperature(temperature float64) Option {
	return func(c *OpenAIClient) {
		c.temperature = temperature
	}
}

// WithTimeout caps the duration of each API request.
func WithTimeout(timeout time.Duration) Option {
	return func(c *OpenAIClient) {
		c.requestOptions = append(c.requestOptions, option.WithRequestTimeout(timeout))
	}
}

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) Option {
	return func(c *OpenAIClient) {
		c.logger = logger
	}
}

// WithBaseURL sets the API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *OpenAIClient) {
		c.requestOptions = append(c.requestOptions, option.WithBaseURL(baseURL))
	}
}

// WithHTTPClient sets the HTTP client used for API calls.
func WithHTTPClient(httpClient option.HTTPClient) Option {
	return func(c *OpenAIClient) {
		c.requestOptions = append(c.requestOptions, option.WithHTTPClient(httpClient))
	}
}

// WithRetry configures a retry policy for API calls. Off by default: the
// engine surfaces a failed oracle call once, retrying is a caller decision.
func WithRetry(opts ...retry.Option) Option {
	return func(c *OpenAIClient) {
		c.retryExecutor = retry.NewExecutor(retry.NewPolicy(opts...))
	}
}

// NewClient creates an OpenAI-backed oracle.
func NewClient(apiKey string, options ...Option) *OpenAIClient {
	client := &OpenAIClient{
		Model:          "gpt-4o",
		temperature:    0.2,
		logger:         logging.New(),
		requestOptions: []option.RequestOption{option.WithAPIKey(apiKey)},
	}

	for _, opt := range options {
		opt(client)
	}

	client.Client = openai.NewClient(client.requestOptions...)
	return client
}

// Name returns the provider name.
func (c *OpenAIClient) Name() string {
	return "openai"
}

// Generate implements interfaces.Oracle.Generate.
//
// With a response format set, the request enforces strict json_schema output.
// With web grounding requested, the schema is dropped (the two contracts are
// mutually exclusive) and the response is best-effort JSON in free text.
func (c *OpenAIClient) Generate(ctx context.Context, prompt string, options ...interfaces.GenerateOption) (string, error) {
	params := &interfaces.GenerateOptions{Temperature: c.temperature}
	for _, option := range options {
		option(params)
	}

	messages := []openai.ChatCompletionMessageParamUnion{}
	if params.SystemMessage != "" {
		messages = append(messages, openai.SystemMessage(params.SystemMessage))
	}

	if len(params.Images) > 0 {
		parts := []openai.ChatCompletionContentPartUnionParam{
			openai.TextContentPart(prompt),
		}
		for _, img := range params.Images {
			dataURL := fmt.Sprintf("data:%s;base64,%s", img.MIMEType, base64.StdEncoding.EncodeToString(img.Data))
			parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
				URL: dataURL,
			}))
		}
		messages = append(messages, openai.UserMessage(parts))
	} else {
		messages = append(messages, openai.UserMessage(prompt))
	}

	req := openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(c.Model),
		Messages:    messages,
		Temperature: param.NewOpt(params.Temperature),
	}

	if params.ResponseFormat != nil && !params.WebGrounding {
		req.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   params.ResponseFormat.Name,
					Schema: params.ResponseFormat.Schema,
					Strict: openai.Bool(true),
				},
			},
		}
	} else if params.ResponseFormat != nil && params.WebGrounding {
		c.logger.Warn(ctx, "Response format ignored for grounded call", map[string]interface{}{
			"format": params.ResponseFormat.Name,
		})
	}

	c.logger.Debug(ctx, "Creating OpenAI completion request", map[string]interface{}{
		"model":     c.Model,
		"grounded":  params.WebGrounding,
		"schema":    params.ResponseFormat != nil && !params.WebGrounding,
		"imageCnt":  len(params.Images),
		"promptLen": len(prompt),
	})

	var completion *openai.ChatCompletion
	call := func() error {
		var err error
		completion, err = c.Client.Chat.Completions.New(ctx, req)
		return err
	}

	var err error
	if c.retryExecutor != nil {
		err = c.retryExecutor.Execute(ctx, call)
	} else {
		err = call()
	}
	if err != nil {
		return "", fmt.Errorf("openai completion failed: %w", err)
	}

	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}
	return completion.Choices[0].Message.Content, nil
}
