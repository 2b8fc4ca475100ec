package prompt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/khshakilahamed/ads-generator/internal/domain"
	"github.com/khshakilahamed/ads-generator/internal/providers"
)

const (
	openAIDefaultTimeout = 30 * time.Second
	openAIDefaultModel   = "gpt-4.1-mini"
	openAIDefaultBaseURL = "https://api.openai.com/v1"
)

// OpenAIOptions configures the OpenAI prompt synthesizer.
type OpenAIOptions struct {
	APIKey       string
	Model        string
	BaseURL      string
	Organization string
	HTTPClient   *http.Client
}

// OpenAISynthesizer derives the prompt pair via the chat completions API
// with the hosted product image attached as vision input.
type OpenAISynthesizer struct {
	apiKey       string
	model        string
	baseURL      string
	organization string
	client       *http.Client
}

type openAIChatRequest struct {
	Model          string          `json:"model"`
	Messages       []openAIMessage `json:"messages"`
	Temperature    float64         `json:"temperature,omitempty"`
	ResponseFormat *openAIFormat   `json:"response_format,omitempty"`
}

type openAIMessage struct {
	Role    string              `json:"role"`
	Content []openAIContentPart `json:"content"`
}

type openAIContentPart struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *openAIImageURL `json:"image_url,omitempty"`
}

type openAIImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

type openAIFormat struct {
	Type string `json:"type"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func NewOpenAISynthesizer(opts OpenAIOptions) (*OpenAISynthesizer, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("openai api key is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = openAIDefaultBaseURL
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = openAIDefaultModel
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: openAIDefaultTimeout}
	}
	return &OpenAISynthesizer{
		apiKey:       strings.TrimSpace(opts.APIKey),
		model:        model,
		baseURL:      baseURL,
		organization: strings.TrimSpace(opts.Organization),
		client:       client,
	}, nil
}

func (o *OpenAISynthesizer) Synthesize(ctx context.Context, req Request) (*domain.PromptPlan, error) {
	content := []openAIContentPart{{Type: "text", Text: buildInstruction(req)}}
	if req.ImageURL != "" {
		content = append(content, openAIContentPart{Type: "image_url", ImageURL: &openAIImageURL{URL: req.ImageURL, Detail: "auto"}})
	}
	if req.AvatarURL != "" {
		content = append(content, openAIContentPart{Type: "image_url", ImageURL: &openAIImageURL{URL: req.AvatarURL, Detail: "auto"}})
	}
	payload := openAIChatRequest{
		Model:          o.model,
		Temperature:    0.6,
		ResponseFormat: &openAIFormat{Type: "json_object"},
		Messages:       []openAIMessage{{Role: "user", Content: content}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, providers.Permanent(fmt.Errorf("openai: encode request: %w", err))
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, providers.Permanent(fmt.Errorf("openai: build request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)
	if o.organization != "" {
		httpReq.Header.Set("OpenAI-Organization", o.organization)
	}
	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, providers.ClassifyTransport(fmt.Errorf("openai: http request: %w", err))
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return nil, providers.ClassifyHTTP(resp.StatusCode,
			fmt.Errorf("openai: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))))
	}
	var out openAIChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, providers.Permanent(fmt.Errorf("openai: decode response: %w", err))
	}
	if len(out.Choices) == 0 {
		return nil, providers.Permanent(errors.New("openai: no choices returned"))
	}
	return parsePlan(out.Choices[0].Message.Content)
}

var _ Synthesizer = (*OpenAISynthesizer)(nil)
