package image

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/khshakilahamed/ads-generator/internal/providers"
)

const (
	geminiDefaultTimeout = 60 * time.Second
	geminiDefaultModel   = "gemini-2.5-flash-image-preview"
	geminiDefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
)

// GeminiOptions configures the Gemini image synthesizer.
type GeminiOptions struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

// GeminiSynthesizer edits the product photo through the Gemini image model.
// The reference images are fetched and attached inline; the generated image
// comes back as inline bytes.
type GeminiSynthesizer struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func NewGeminiSynthesizer(opts GeminiOptions) (*GeminiSynthesizer, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("gemini api key is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = geminiDefaultBaseURL
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = geminiDefaultModel
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: geminiDefaultTimeout}
	}
	return &GeminiSynthesizer{
		apiKey:  strings.TrimSpace(opts.APIKey),
		model:   model,
		baseURL: baseURL,
		client:  client,
	}, nil
}

func (g *GeminiSynthesizer) Synthesize(ctx context.Context, req Request) (*Asset, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, providers.Permanent(errors.New("gemini: prompt is required"))
	}
	parts := []geminiPart{{Text: prompt}}
	for _, ref := range []string{req.SourceImageURL, req.AvatarURL} {
		if ref == "" {
			continue
		}
		data, mime, err := g.fetchReference(ctx, ref)
		if err != nil {
			return nil, err
		}
		parts = append(parts, geminiPart{InlineData: &geminiInlineData{
			MimeType: mime,
			Data:     base64.StdEncoding.EncodeToString(data),
		}})
	}
	payload := geminiRequest{Contents: []geminiContent{{Role: "user", Parts: parts}}}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, providers.Permanent(fmt.Errorf("gemini: encode request: %w", err))
	}
	endpoint := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, url.PathEscape(g.model))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, providers.Permanent(fmt.Errorf("gemini: build request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.apiKey)
	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, providers.ClassifyTransport(fmt.Errorf("gemini: http request: %w", err))
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return nil, providers.ClassifyHTTP(resp.StatusCode,
			fmt.Errorf("gemini: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))))
	}
	var out geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, providers.Permanent(fmt.Errorf("gemini: decode response: %w", err))
	}
	asset := firstInlineImage(out)
	if asset == nil {
		return nil, providers.Permanent(errors.New("gemini: no image data returned"))
	}
	return asset, nil
}

func (g *GeminiSynthesizer) fetchReference(ctx context.Context, imageURL string) ([]byte, string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", providers.Permanent(fmt.Errorf("gemini: invalid reference url %q: %w", imageURL, err))
	}
	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, "", providers.ClassifyTransport(fmt.Errorf("gemini: fetch reference: %w", err))
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 300 {
		return nil, "", providers.ClassifyHTTP(resp.StatusCode,
			fmt.Errorf("gemini: fetch reference status %d", resp.StatusCode))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", providers.ClassifyTransport(fmt.Errorf("gemini: read reference: %w", err))
	}
	mime := resp.Header.Get("Content-Type")
	if mime == "" {
		mime = "image/png"
	}
	return data, mime, nil
}

func firstInlineImage(resp geminiResponse) *Asset {
	for _, cand := range resp.Candidates {
		for _, part := range cand.Content.Parts {
			if part.InlineData == nil || part.InlineData.Data == "" {
				continue
			}
			data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil || len(data) == 0 {
				continue
			}
			format := part.InlineData.MimeType
			if format == "" {
				format = "image/png"
			}
			return &Asset{Data: data, Format: format}
		}
	}
	return nil
}

var _ Synthesizer = (*GeminiSynthesizer)(nil)
