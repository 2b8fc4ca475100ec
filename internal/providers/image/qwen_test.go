package image

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/khshakilahamed/ads-generator/internal/providers"
)

func TestQwenSynthesizeReturnsRemoteReference(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req qwenGenerationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Parameters.Size != "1024*1024" {
			t.Errorf("size = %q, want 1024*1024", req.Parameters.Size)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"output":{"choices":[{"message":{"content":[{"image":"https://dashscope.example.com/result.png"}]}}]},"request_id":"req-1"}`))
	}))
	defer server.Close()

	synth, err := NewQwenSynthesizer(QwenOptions{APIKey: "dummy", BaseURL: server.URL, HTTPClient: server.Client()})
	if err != nil {
		t.Fatalf("NewQwenSynthesizer returned error: %v", err)
	}
	asset, err := synth.Synthesize(context.Background(), Request{
		Prompt:         "splash shot",
		SourceImageURL: "https://cdn.example.com/source.png",
		Size:           "1024x1024",
	})
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
	if asset.URL != "https://dashscope.example.com/result.png" {
		t.Fatalf("asset url = %q", asset.URL)
	}
	if len(asset.Data) != 0 {
		t.Fatal("qwen assets must be remote references")
	}
}

func TestQwenCodeClassification(t *testing.T) {
	testCases := []struct {
		code          string
		wantTransient bool
	}{
		{code: "Throttling.RateQuota", wantTransient: true},
		{code: "RequestTimeOut", wantTransient: true},
		{code: "InternalError", wantTransient: true},
		{code: "InvalidParameter", wantTransient: false},
		{code: "Arrearage", wantTransient: false},
	}
	for _, tc := range testCases {
		t.Run(tc.code, func(t *testing.T) {
			err := classifyQwenCode(tc.code, "detail")
			if got := providers.IsTransient(err); got != tc.wantTransient {
				t.Fatalf("IsTransient(%s) = %v, want %v", tc.code, got, tc.wantTransient)
			}
		})
	}
}

func TestQwenSynthesizeEmptyResultIsPermanent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"output":{"choices":[]}}`))
	}))
	defer server.Close()

	synth, err := NewQwenSynthesizer(QwenOptions{APIKey: "dummy", BaseURL: server.URL, HTTPClient: server.Client()})
	if err != nil {
		t.Fatalf("NewQwenSynthesizer returned error: %v", err)
	}
	_, err = synth.Synthesize(context.Background(), Request{Prompt: "x"})
	if err == nil {
		t.Fatal("expected error")
	}
	if providers.IsTransient(err) {
		t.Fatalf("empty result must classify permanent, got %v", err)
	}
}
