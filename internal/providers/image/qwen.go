package image

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

	"github.com/khshakilahamed/ads-generator/internal/providers"
)

const (
	qwenDefaultTimeout = 60 * time.Second
	qwenDefaultModel   = "qwen-image-plus"
	qwenDefaultBaseURL = "https://dashscope-intl.aliyuncs.com/api/v1"
)

// QwenOptions configures the DashScope Qwen image synthesizer.
type QwenOptions struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

// QwenSynthesizer generates the showcase image through the DashScope
// multimodal API. DashScope hosts the result itself, so this provider
// returns a remote reference rather than inline bytes.
type QwenSynthesizer struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

type qwenGenerationRequest struct {
	Model      string     `json:"model"`
	Input      qwenInput  `json:"input"`
	Parameters qwenParams `json:"parameters"`
}

type qwenInput struct {
	Messages []qwenMessage `json:"messages"`
}

type qwenMessage struct {
	Role    string        `json:"role"`
	Content []qwenContent `json:"content"`
}

type qwenContent struct {
	Text  string `json:"text,omitempty"`
	Image string `json:"image,omitempty"`
}

type qwenParams struct {
	Size string `json:"size,omitempty"`
}

type qwenGenerationResponse struct {
	Output struct {
		Choices []struct {
			Message struct {
				Content []struct {
					Image string `json:"image"`
				} `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	} `json:"output"`
	RequestID string `json:"request_id"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

func NewQwenSynthesizer(opts QwenOptions) (*QwenSynthesizer, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("qwen api key is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = qwenDefaultBaseURL
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = qwenDefaultModel
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: qwenDefaultTimeout}
	}
	return &QwenSynthesizer{
		apiKey:  strings.TrimSpace(opts.APIKey),
		model:   model,
		baseURL: baseURL,
		client:  client,
	}, nil
}

func (q *QwenSynthesizer) Synthesize(ctx context.Context, req Request) (*Asset, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, providers.Permanent(errors.New("qwen: prompt is required"))
	}
	content := []qwenContent{{Text: prompt}}
	if req.SourceImageURL != "" {
		content = append(content, qwenContent{Image: req.SourceImageURL})
	}
	if req.AvatarURL != "" {
		content = append(content, qwenContent{Image: req.AvatarURL})
	}
	payload := qwenGenerationRequest{
		Model: q.model,
		Input: qwenInput{
			Messages: []qwenMessage{{Role: "user", Content: content}},
		},
		Parameters: qwenParams{Size: qwenSize(req.Size)},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, providers.Permanent(fmt.Errorf("qwen: encode request: %w", err))
	}
	endpoint := q.baseURL + "/services/aigc/multimodal-generation/generation"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, providers.Permanent(fmt.Errorf("qwen: build request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+q.apiKey)

	resp, err := q.client.Do(httpReq)
	if err != nil {
		return nil, providers.ClassifyTransport(fmt.Errorf("qwen: http request: %w", err))
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, providers.ClassifyTransport(fmt.Errorf("qwen: read response: %w", err))
	}
	if resp.StatusCode >= 300 {
		return nil, providers.ClassifyHTTP(resp.StatusCode,
			fmt.Errorf("qwen: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))))
	}
	var decoded qwenGenerationResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, providers.Permanent(fmt.Errorf("qwen: decode response: %w", err))
	}
	if decoded.Code != "" {
		return nil, classifyQwenCode(decoded.Code, decoded.Message)
	}
	imageURL := firstQwenImageURL(decoded)
	if imageURL == "" {
		return nil, providers.Permanent(errors.New("qwen: empty image url"))
	}
	return &Asset{URL: imageURL, Format: "image/png"}, nil
}

// classifyQwenCode maps DashScope business error codes onto the retry
// taxonomy. Throttling resolves on retry; everything else does not.
func classifyQwenCode(code, message string) error {
	err := fmt.Errorf("qwen: %s (%s)", message, code)
	lower := strings.ToLower(code)
	if strings.Contains(lower, "throttling") || strings.Contains(lower, "timeout") || strings.Contains(lower, "internalerror") {
		return providers.Transient(err)
	}
	return providers.Permanent(err)
}

func firstQwenImageURL(resp qwenGenerationResponse) string {
	for _, choice := range resp.Output.Choices {
		for _, content := range choice.Message.Content {
			if url := strings.TrimSpace(content.Image); url != "" {
				return url
			}
		}
	}
	return ""
}

func qwenSize(size string) string {
	size = strings.TrimSpace(size)
	if size == "" {
		return ""
	}
	return strings.ReplaceAll(size, "x", "*")
}

var _ Synthesizer = (*QwenSynthesizer)(nil)
