package llm

import (
	"context"
	"time"
)

// Generator is the part of the model-server client the session coordinator
// depends on.
type Generator interface {
	// Generate sends a non-streaming request and returns the full response text
	Generate(ctx context.Context, req Request) (string, error)

	// GenerateStream opens a streaming request; fragments are pulled from the
	// returned Stream until it ends
	GenerateStream(ctx context.Context, req Request) (*Stream, error)
}

// Request describes one generation call
type Request struct {
	Model   string
	Prompt  string
	System  string
	Options Options
}

// Options holds the sampling knobs understood by /api/generate.
// Nil fields are left to the default profile.
type Options struct {
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
	TopK        *int     `json:"top_k,omitempty"`
	NumPredict  *int     `json:"num_predict,omitempty"`
}

// DefaultOptions returns the sampling profile applied before caller overrides
func DefaultOptions() Options {
	return Options{
		Temperature: Float(0.65),
		TopP:        Float(0.9),
		NumPredict:  Int(1500),
	}
}

// Merge returns o with every field set in override replacing its counterpart
func (o Options) Merge(override Options) Options {
	if override.Temperature != nil {
		o.Temperature = override.Temperature
	}
	if override.TopP != nil {
		o.TopP = override.TopP
	}
	if override.TopK != nil {
		o.TopK = override.TopK
	}
	if override.NumPredict != nil {
		o.NumPredict = override.NumPredict
	}
	return o
}

// Float returns a pointer to v
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v
func Int(v int) *int { return &v }

// generateRequest is the wire body of POST /api/generate
type generateRequest struct {
	Model   string   `json:"model"`
	Prompt  string   `json:"prompt"`
	System  string   `json:"system,omitempty"`
	Stream  bool     `json:"stream"`
	Options *Options `json:"options,omitempty"`
}

// GenerateResponse is one object returned by /api/generate. In streaming mode
// every line of the body is one of these.
type GenerateResponse struct {
	Model              string    `json:"model"`
	CreatedAt          time.Time `json:"created_at"`
	Response           string    `json:"response"`
	Done               bool      `json:"done"`
	DoneReason         string    `json:"done_reason,omitempty"`
	Context            []int     `json:"context,omitempty"`
	TotalDuration      int64     `json:"total_duration,omitempty"`
	LoadDuration       int64     `json:"load_duration,omitempty"`
	PromptEvalCount    int       `json:"prompt_eval_count,omitempty"`
	PromptEvalDuration int64     `json:"prompt_eval_duration,omitempty"`
	EvalCount          int       `json:"eval_count,omitempty"`
	EvalDuration       int64     `json:"eval_duration,omitempty"`
}

// DefaultBaseURL is where a local Ollama server listens
const DefaultBaseURL = "http://localhost:11434"

// DefaultTimeout for non-streaming requests. Large local models can take
// minutes before the first token.
const DefaultTimeout = 5 * time.Minute
