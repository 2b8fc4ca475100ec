package prompt

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/khshakilahamed/ads-generator/internal/providers"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func geminiBody(text string) string {
	return `{"candidates":[{"content":{"role":"model","parts":[{"text":` + jsonQuote(text) + `}]}}]}`
}

func jsonQuote(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)
	return `"` + replacer.Replace(s) + `"`
}

func newGeminiWithResponse(t *testing.T, status int, body string) *GeminiSynthesizer {
	t.Helper()
	synth, err := NewGeminiSynthesizer(GeminiOptions{
		APIKey: "dummy",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: status,
				Body:       io.NopCloser(strings.NewReader(body)),
				Header:     http.Header{"Content-Type": []string{"application/json"}},
			}, nil
		})},
	})
	if err != nil {
		t.Fatalf("NewGeminiSynthesizer returned error: %v", err)
	}
	return synth
}

func TestGeminiSynthesizeParsesPlan(t *testing.T) {
	raw := "```json\n{\"textToImage\": \"splash shot\", \"imageToVideo\": \"camera orbit\"}\n```"
	synth := newGeminiWithResponse(t, http.StatusOK, geminiBody(raw))
	plan, err := synth.Synthesize(context.Background(), Request{
		ImageURL:    "https://cdn.example.com/source.png",
		Description: "red sneaker",
	})
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
	if plan.ImageEditPrompt != "splash shot" {
		t.Fatalf("ImageEditPrompt = %q", plan.ImageEditPrompt)
	}
	if plan.VideoPrompt != "camera orbit" {
		t.Fatalf("VideoPrompt = %q", plan.VideoPrompt)
	}
}

func TestGeminiSynthesizeRateLimitIsTransient(t *testing.T) {
	synth := newGeminiWithResponse(t, http.StatusTooManyRequests, `{"error":{"message":"rate limited"}}`)
	_, err := synth.Synthesize(context.Background(), Request{ImageURL: "https://x/y.png"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !providers.IsTransient(err) {
		t.Fatalf("429 must classify transient, got %v", err)
	}
}

func TestGeminiSynthesizeBadRequestIsPermanent(t *testing.T) {
	synth := newGeminiWithResponse(t, http.StatusBadRequest, `{"error":{"message":"bad input"}}`)
	_, err := synth.Synthesize(context.Background(), Request{ImageURL: "https://x/y.png"})
	if err == nil {
		t.Fatal("expected error")
	}
	if providers.IsTransient(err) {
		t.Fatalf("400 must classify permanent, got %v", err)
	}
}

func TestGeminiSynthesizeMalformedOutputIsPermanent(t *testing.T) {
	synth := newGeminiWithResponse(t, http.StatusOK, geminiBody("sorry, I cannot help with that"))
	_, err := synth.Synthesize(context.Background(), Request{ImageURL: "https://x/y.png"})
	if err == nil {
		t.Fatal("expected error")
	}
	if providers.IsTransient(err) {
		t.Fatalf("parse failure must classify permanent, got %v", err)
	}
}

func TestGeminiSynthesizeNetworkErrorIsTransient(t *testing.T) {
	synth, err := NewGeminiSynthesizer(GeminiOptions{
		APIKey: "dummy",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return nil, errors.New("connection reset")
		})},
	})
	if err != nil {
		t.Fatalf("NewGeminiSynthesizer returned error: %v", err)
	}
	_, err = synth.Synthesize(context.Background(), Request{ImageURL: "https://x/y.png"})
	if !providers.IsTransient(err) {
		t.Fatalf("transport failure must classify transient, got %v", err)
	}
}

func TestNewGeminiSynthesizerRequiresAPIKey(t *testing.T) {
	if _, err := NewGeminiSynthesizer(GeminiOptions{}); err == nil {
		t.Fatal("expected missing api key error")
	}
}
