package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/onionwatch/onionwatch/internal/model"
)

// Default request parameters, applied when the caller leaves them unset.
const (
	// defaultMaxTokens bounds the response size. The expected answer is a
	// small JSON object, so 100 tokens is plenty.
	defaultMaxTokens = 100

	// defaultTemperature keeps sampling nearly deterministic, which is what
	// a classification task wants.
	defaultTemperature = 0.1

	// defaultBaseURL is the production endpoint of the classification
	// service.
	defaultBaseURL = "https://api.anthropic.com"

	// apiVersion is the service API version header value.
	apiVersion = "2023-06-01"
)

// Params are the caller-supplied model parameters for one classification
// job. They arrive with the job creation request and apply to every item in
// that job.
type Params struct {
	// APIKey authenticates against the classification service.
	APIKey string

	// Model names the model to query, e.g. "claude-3-5-sonnet-20241022".
	Model string

	// Temperature is the sampling temperature. Zero means the default.
	Temperature float64

	// MaxTokens bounds the response length. Zero means the default.
	MaxTokens int
}

// withDefaults fills in unset optional parameters.
func (p Params) withDefaults() Params {
	if p.MaxTokens == 0 {
		p.MaxTokens = defaultMaxTokens
	}
	if p.Temperature == 0 {
		p.Temperature = defaultTemperature
	}
	return p
}

// Classifier assigns a verdict to one post. Implementations never return an
// error: a failed classification is represented inside the Verdict so the
// engine's per-item loop needs no failure branch.
type Classifier interface {
	Classify(ctx context.Context, text string, params Params) model.Verdict
}

// Anthropic classifies posts through the Anthropic Messages API.
//
// Design decision: We call the HTTP API directly rather than through an SDK
// because the surface we need is one endpoint with a fixed request shape,
// and a hand-rolled client keeps the dependency tree small and the request
// fully visible in tests.
type Anthropic struct {
	// baseURL is the service endpoint, overridable for tests.
	baseURL string

	// httpClient performs the requests.
	httpClient *http.Client
}

// AnthropicOption configures an Anthropic classifier.
type AnthropicOption func(*Anthropic)

// WithBaseURL overrides the service endpoint.
func WithBaseURL(u string) AnthropicOption {
	return func(a *Anthropic) {
		a.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) AnthropicOption {
	return func(a *Anthropic) {
		a.httpClient = c
	}
}

// NewAnthropic creates a classifier backed by the Anthropic Messages API.
func NewAnthropic(opts ...AnthropicOption) *Anthropic {
	a := &Anthropic{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// messagesRequest is the request body for the Messages API.
type messagesRequest struct {
	Model       string        `json:"model"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	Messages    []chatMessage `json:"messages"`
}

// chatMessage is one conversation turn.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// messagesResponse is the subset of the Messages API response we read.
type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// serviceVerdict is the JSON object the model is instructed to return.
type serviceVerdict struct {
	Classification string        `json:"classification"`
	Scores         *model.Scores `json:"scores"`
}

// Classify implements the Classifier interface. It never returns an error;
// any service or parse failure produces a Verdict carrying the error
// message, keeping per-item trouble out of the pipeline's control flow.
func (a *Anthropic) Classify(ctx context.Context, text string, params Params) model.Verdict {
	params = params.withDefaults()

	raw, err := a.post(ctx, messagesRequest{
		Model:       params.Model,
		MaxTokens:   params.MaxTokens,
		Temperature: params.Temperature,
		Messages: []chatMessage{
			{Role: "user", Content: buildPrompt(text)},
		},
	}, params.APIKey)
	if err != nil {
		return errorVerdict(text, err)
	}

	var resp messagesResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return errorVerdict(text, fmt.Errorf("malformed service response: %w", err))
	}
	if len(resp.Content) == 0 {
		return errorVerdict(text, fmt.Errorf("empty service response"))
	}

	block, err := extractJSONBlock(resp.Content[0].Text)
	if err != nil {
		return errorVerdict(text, err)
	}

	var sv serviceVerdict
	if err := json.Unmarshal([]byte(block), &sv); err != nil {
		return errorVerdict(text, fmt.Errorf("malformed verdict JSON: %w", err))
	}
	if sv.Classification == "" {
		return errorVerdict(text, fmt.Errorf("verdict missing classification"))
	}

	return model.Verdict{
		Content: text,
		Label:   sv.Classification,
		Scores:  sv.Scores,
	}
}

// post sends one request to the Messages API and returns the raw response
// body. Non-2xx responses are errors carrying the response text.
func (a *Anthropic) post(ctx context.Context, body messagesRequest, apiKey string) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/messages", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-api-key", apiKey)
	req.Header.Set("anthropic-version", apiVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("service request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read service response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("service status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return raw, nil
}

// extractJSONBlock locates the ```json fenced block in the model's answer.
// The prompt instructs the model to wrap its JSON this way; anything else
// is a parse failure.
func extractJSONBlock(content string) (string, error) {
	const open = "```json"
	start := strings.Index(content, open)
	if start < 0 {
		return "", fmt.Errorf("no json block in response")
	}
	rest := content[start+len(open):]
	end := strings.Index(rest, "```")
	if end < 0 {
		return "", fmt.Errorf("unterminated json block in response")
	}
	return strings.TrimSpace(rest[:end]), nil
}

// errorVerdict wraps a per-item failure in the Verdict shape: no label, no
// scores, the original text kept for traceability.
func errorVerdict(text string, err error) model.Verdict {
	return model.Verdict{
		Content: text,
		Error:   fmt.Sprintf("Failed to classify post: %v", err),
	}
}
