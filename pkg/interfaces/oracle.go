package interfaces

import "context"

// JSONSchema represents a JSON schema as a generic map.
type JSONSchema map[string]interface{}

// ResponseFormatType specifies the type of response format.
type ResponseFormatType string

const (
	// ResponseFormatJSON requests schema-validated JSON output.
	ResponseFormatJSON ResponseFormatType = "json_schema"

	// ResponseFormatText requests free-form text output.
	ResponseFormatText ResponseFormatType = "text"
)

// ResponseFormat describes the strict-schema response contract for an oracle
// call.
type ResponseFormat struct {
	Type   ResponseFormatType `json:"type"`
	Name   string             `json:"name"`
	Schema JSONSchema         `json:"schema"`
}

// GenerateOptions holds the per-call options for an oracle invocation.
//
// ResponseFormat and WebGrounding are mutually exclusive: an invocation that
// is permitted to resolve URLs or ground across web sources cannot also
// enforce strict schema validation, and its output is best-effort JSON in
// free text. Implementations must drop the schema when both are set.
type GenerateOptions struct {
	ResponseFormat *ResponseFormat
	WebGrounding   bool
	Images         []ImageBlob
	SystemMessage  string
	Temperature    float64
}

// GenerateOption configures a single oracle call.
type GenerateOption func(*GenerateOptions)

// WithResponseFormat requests strictly schema-validated output.
func WithResponseFormat(format ResponseFormat) GenerateOption {
	return func(o *GenerateOptions) {
		o.ResponseFormat = &format
	}
}

// WithWebGrounding permits the oracle to resolve URLs embedded in the prompt
// and ground its answer on what it finds. Switches the response contract to
// best-effort JSON in free text.
func WithWebGrounding(enabled bool) GenerateOption {
	return func(o *GenerateOptions) {
		o.WebGrounding = enabled
	}
}

// WithImages attaches inline images to the oracle call.
func WithImages(images []ImageBlob) GenerateOption {
	return func(o *GenerateOptions) {
		o.Images = images
	}
}

// WithSystemMessage sets the system message for the oracle call.
func WithSystemMessage(message string) GenerateOption {
	return func(o *GenerateOptions) {
		o.SystemMessage = message
	}
}

// WithTemperature sets the sampling temperature for the oracle call.
func WithTemperature(temperature float64) GenerateOption {
	return func(o *GenerateOptions) {
		o.Temperature = temperature
	}
}

// Oracle is the external natural-language extraction/summarization service.
// It is nondeterministic and fallible; callers own any retry or cancellation
// policy and wrap the call externally when they need either.
type Oracle interface {
	// Generate produces a response for the given prompt. The shape of the
	// response is governed by the options; see GenerateOptions.
	Generate(ctx context.Context, prompt string, options ...GenerateOption) (string, error)

	// Name returns the provider name.
	Name() string
}
