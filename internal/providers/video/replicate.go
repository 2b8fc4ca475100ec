package video

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
	replicateDefaultTimeout      = 15 * time.Second
	replicateDefaultPollInterval = 2 * time.Second
	replicateDefaultModel        = "wan-video/wan-2.2-i2v-fast"
	replicateDefaultBaseURL      = "https://api.replicate.com/v1"
)

// ReplicateOptions configures the Replicate image-to-video synthesizer.
type ReplicateOptions struct {
	APIToken     string
	Model        string
	BaseURL      string
	PollInterval time.Duration
	HTTPClient   *http.Client
}

// ReplicateSynthesizer runs an image-to-video model on Replicate: it creates
// a prediction, then polls until the prediction reaches a terminal state.
// The overall wait is bounded by the caller's context deadline.
type ReplicateSynthesizer struct {
	apiToken     string
	model        string
	baseURL      string
	pollInterval time.Duration
	client       *http.Client
}

type replicateInput struct {
	Image  string `json:"image"`
	Prompt string `json:"prompt"`
}

type replicateCreateRequest struct {
	Input replicateInput `json:"input"`
}

type replicatePrediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  string          `json:"error"`
	URLs   struct {
		Get string `json:"get"`
	} `json:"urls"`
}

func NewReplicateSynthesizer(opts ReplicateOptions) (*ReplicateSynthesizer, error) {
	if strings.TrimSpace(opts.APIToken) == "" {
		return nil, errors.New("replicate api token is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = replicateDefaultBaseURL
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = replicateDefaultModel
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = replicateDefaultPollInterval
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: replicateDefaultTimeout}
	}
	return &ReplicateSynthesizer{
		apiToken:     strings.TrimSpace(opts.APIToken),
		model:        model,
		baseURL:      baseURL,
		pollInterval: interval,
		client:       client,
	}, nil
}

func (r *ReplicateSynthesizer) Synthesize(ctx context.Context, req Request) (*Asset, error) {
	if strings.TrimSpace(req.ImageURL) == "" {
		return nil, providers.Permanent(errors.New("replicate: image url is required"))
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, providers.Permanent(errors.New("replicate: prompt is required"))
	}
	prediction, err := r.createPrediction(ctx, req)
	if err != nil {
		return nil, err
	}
	for !terminalPredictionStatus(prediction.Status) {
		timer := time.NewTimer(r.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		prediction, err = r.getPrediction(ctx, prediction)
		if err != nil {
			return nil, err
		}
	}
	if prediction.Status != "succeeded" {
		detail := prediction.Error
		if detail == "" {
			detail = prediction.Status
		}
		return nil, providers.Permanent(fmt.Errorf("replicate: prediction %s: %s", prediction.ID, detail))
	}
	outputURL := decodeOutputURL(prediction.Output)
	if outputURL == "" {
		return nil, providers.Permanent(fmt.Errorf("replicate: prediction %s returned no output url", prediction.ID))
	}
	return &Asset{URL: outputURL, Format: "video/mp4"}, nil
}

func (r *ReplicateSynthesizer) createPrediction(ctx context.Context, req Request) (*replicatePrediction, error) {
	payload := replicateCreateRequest{Input: replicateInput{Image: req.ImageURL, Prompt: req.Prompt}}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, providers.Permanent(fmt.Errorf("replicate: encode request: %w", err))
	}
	endpoint := fmt.Sprintf("%s/models/%s/predictions", r.baseURL, r.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, providers.Permanent(fmt.Errorf("replicate: build request: %w", err))
	}
	return r.do(httpReq)
}

func (r *ReplicateSynthesizer) getPrediction(ctx context.Context, prev *replicatePrediction) (*replicatePrediction, error) {
	target := prev.URLs.Get
	if target == "" {
		target = fmt.Sprintf("%s/predictions/%s", r.baseURL, prev.ID)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, providers.Permanent(fmt.Errorf("replicate: build poll request: %w", err))
	}
	return r.do(httpReq)
}

func (r *ReplicateSynthesizer) do(httpReq *http.Request) (*replicatePrediction, error) {
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Token "+r.apiToken)
	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, providers.ClassifyTransport(fmt.Errorf("replicate: http request: %w", err))
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return nil, providers.ClassifyHTTP(resp.StatusCode,
			fmt.Errorf("replicate: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))))
	}
	var prediction replicatePrediction
	if err := json.NewDecoder(resp.Body).Decode(&prediction); err != nil {
		return nil, providers.Permanent(fmt.Errorf("replicate: decode response: %w", err))
	}
	return &prediction, nil
}

func terminalPredictionStatus(status string) bool {
	switch status {
	case "succeeded", "failed", "canceled":
		return true
	}
	return false
}

// decodeOutputURL tolerates the two output shapes Replicate models use: a
// single URL string or an array of URL strings.
func decodeOutputURL(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return strings.TrimSpace(single)
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil && len(many) > 0 {
		return strings.TrimSpace(many[0])
	}
	return ""
}

var _ Synthesizer = (*ReplicateSynthesizer)(nil)
