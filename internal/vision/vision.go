// Package vision extracts merchandising metadata (dominant color, style, best
// matching skin tones) from product photos through an OpenAI-compatible
// multimodal chat endpoint. Analysis is advisory: every failure path yields
// neutral defaults so product upload never blocks on the vision provider.
package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"tryonserver/internal/infra"
)

const (
	defaultModel   = "gpt-4o-mini"
	defaultBaseURL = "https://api.openai.com/v1"
	defaultTimeout = 20 * time.Second
)

// Metadata is the vision verdict for one product image.
type Metadata struct {
	Color         string   `json:"color"`
	Style         string   `json:"style"`
	BestSkinTones []string `json:"bestSkinTones"`
}

// Defaults is returned whenever analysis cannot produce a verdict.
func Defaults() Metadata {
	return Metadata{Color: "Unknown", Style: "General", BestSkinTones: []string{}}
}

// Options configures the analyzer.
type Options struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Analyzer calls the multimodal chat endpoint. A zero API key disables it;
// Analyze then returns defaults immediately.
type Analyzer struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	logger  *infra.Logger
}

// NewAnalyzer constructs an Analyzer. Unlike most providers a missing API key
// is not an error here; it produces a disabled analyzer.
func NewAnalyzer(opts Options) *Analyzer {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Analyzer{
		apiKey:  strings.TrimSpace(opts.APIKey),
		model:   model,
		baseURL: baseURL,
		client:  client,
		logger:  opts.Logger,
	}
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	MaxTokens      int           `json:"max_tokens,omitempty"`
	ResponseFormat *chatFormat   `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageRef `json:"image_url,omitempty"`
}

type imageRef struct {
	URL string `json:"url"`
}

type chatFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type verdictPayload struct {
	Color         string   `json:"color"`
	Style         string   `json:"style"`
	BestSkinTones []string `json:"best_skin_tones"`
}

const analysisPrompt = `Analyze this product photo. Respond with a JSON object with exactly these keys:
"color": the dominant color as a short human-readable name,
"style": one of Casual, Formal, Sporty, Elegant, Streetwear, Traditional, General,
"best_skin_tones": an array of tones from [fair, light, medium, olive, tan, deep, dark, warm, cool, neutral] this product flatters most.`

// Analyze inspects the product image. It never returns an error; any failure
// is logged and mapped to Defaults.
func (a *Analyzer) Analyze(ctx context.Context, imageURL, category string) Metadata {
	if a.apiKey == "" || strings.TrimSpace(imageURL) == "" {
		return Defaults()
	}

	prompt := analysisPrompt
	if category != "" {
		prompt += "\nThe product category is: " + category + "."
	}
	payload := chatRequest{
		Model:          a.model,
		MaxTokens:      300,
		ResponseFormat: &chatFormat{Type: "json_object"},
		Messages: []chatMessage{
			{
				Role: "user",
				Content: []contentPart{
					{Type: "text", Text: prompt},
					{Type: "image_url", ImageURL: &imageRef{URL: imageURL}},
				},
			},
		},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return a.fallback("encode_request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/chat/completions", &buf)
	if err != nil {
		return a.fallback("build_request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return a.fallback("http_request", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return a.fallback(fmt.Sprintf("http_%d", resp.StatusCode), fmt.Errorf("vision status %d", resp.StatusCode))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return a.fallback("decode_response", err)
	}
	if len(out.Choices) == 0 {
		return a.fallback("empty_choices", nil)
	}

	verdict, ok := parseVerdict(out.Choices[0].Message.Content)
	if !ok {
		return a.fallback("parse_verdict", nil)
	}
	return verdict
}

func (a *Analyzer) fallback(reason string, err error) Metadata {
	if a.logger != nil {
		a.logger.Warn().Err(err).Str("reason", reason).Msg("vision: analysis fell back to defaults")
	}
	return Defaults()
}

// parseVerdict tolerates models that wrap the JSON object in prose or code
// fences by slicing from the first '{' to the last '}'.
func parseVerdict(text string) (Metadata, bool) {
	text = strings.TrimSpace(text)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return Metadata{}, false
	}

	var parsed verdictPayload
	if err := json.Unmarshal([]byte(text[start:end+1]), &parsed); err != nil {
		return Metadata{}, false
	}

	meta := Defaults()
	if c := strings.TrimSpace(parsed.Color); c != "" {
		meta.Color = c
	}
	if s := strings.TrimSpace(parsed.Style); s != "" {
		meta.Style = s
	}
	for _, tone := range parsed.BestSkinTones {
		if tone = strings.ToLower(strings.TrimSpace(tone)); tone != "" {
			meta.BestSkinTones = append(meta.BestSkinTones, tone)
		}
	}
	return meta, true
}
