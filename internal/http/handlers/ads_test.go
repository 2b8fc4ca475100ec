package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/khshakilahamed/ads-generator/internal/adapter/feed"
	"github.com/khshakilahamed/ads-generator/internal/domain"
	"github.com/khshakilahamed/ads-generator/internal/infra"
	"github.com/khshakilahamed/ads-generator/internal/middleware"
	"github.com/khshakilahamed/ads-generator/internal/pipeline"
	"github.com/khshakilahamed/ads-generator/internal/providers/image"
	"github.com/khshakilahamed/ads-generator/internal/providers/prompt"
	"github.com/khshakilahamed/ads-generator/internal/providers/video"
)

type stubRepo struct {
	ads         map[string]*domain.Ad
	markPending error
}

func (r *stubRepo) Create(_ context.Context, ad *domain.Ad) error {
	copied := *ad
	r.ads[ad.ID] = &copied
	return nil
}

func (r *stubRepo) Update(_ context.Context, adID string, update domain.AdUpdate) error {
	if _, ok := r.ads[adID]; !ok {
		return domain.ErrNotFound
	}
	return nil
}

func (r *stubRepo) MarkVideoPending(_ context.Context, adID string, _ []domain.VideoStatus) error {
	if _, ok := r.ads[adID]; !ok {
		return domain.ErrNotFound
	}
	return r.markPending
}

func (r *stubRepo) GetByID(_ context.Context, adID string) (*domain.Ad, error) {
	ad, ok := r.ads[adID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *ad
	return &copied, nil
}

func (r *stubRepo) ListByOwner(_ context.Context, ownerEmail string) ([]domain.Ad, error) {
	var out []domain.Ad
	for _, ad := range r.ads {
		if ad.OwnerEmail == ownerEmail {
			out = append(out, *ad)
		}
	}
	return out, nil
}

type stubBlobs struct{}

func (stubBlobs) Upload(_ context.Context, key string, _ []byte, _ string) (string, error) {
	return "https://blob.test/" + key, nil
}

type stubPrompts struct{}

func (stubPrompts) Synthesize(context.Context, prompt.Request) (*domain.PromptPlan, error) {
	return &domain.PromptPlan{ImageEditPrompt: "edit", VideoPrompt: "motion"}, nil
}

type stubImages struct{}

func (stubImages) Synthesize(context.Context, image.Request) (*image.Asset, error) {
	return &image.Asset{Data: []byte("png"), Format: "image/png"}, nil
}

type stubVideos struct{}

func (stubVideos) Synthesize(context.Context, video.Request) (*video.Asset, error) {
	return &video.Asset{URL: "https://provider.test/out.mp4"}, nil
}

func newTestApp(t *testing.T, repo *stubRepo) *App {
	t.Helper()
	cfg := &infra.Config{MaxUploadBytes: 1 << 20, RateLimitPerMin: 100}
	orch, err := pipeline.New(pipeline.Options{
		Repo:    repo,
		Blobs:   stubBlobs{},
		Prompts: stubPrompts{},
		Images:  stubImages{},
		Videos:  stubVideos{},
		Logger:  zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("pipeline.New returned error: %v", err)
	}
	return NewApp(cfg, zerolog.Nop(), orch, repo, feed.NewMemoryFeed())
}

func withOwner(req *http.Request, owner string) *http.Request {
	req.Header.Set("X-Owner-Email", owner)
	return req
}

func newRouter(app *App) http.Handler {
	r := chi.NewRouter()
	r.Route("/v1/ads", func(r chi.Router) {
		r.Use(middleware.Owner)
		r.Post("/", app.CreateAd)
		r.Get("/", app.ListAds)
		r.Get("/{ad_id}", app.GetAd)
		r.Post("/{ad_id}/video", app.AnimateAd)
	})
	return r
}

func multipartImage(t *testing.T, field string, payload []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, "product.png")
	if err != nil {
		t.Fatalf("CreateFormFile returned error: %v", err)
	}
	if _, err := fw.Write(payload); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	_ = mw.WriteField("description", "mango juice")
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &body, mw.FormDataContentType()
}

// valid 8-byte PNG signature so content sniffing sees an image
var pngBytes = append([]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, bytes.Repeat([]byte{0}, 64)...)

func TestCreateAdReturnsCompletedRecord(t *testing.T) {
	repo := &stubRepo{ads: make(map[string]*domain.Ad)}
	router := newRouter(newTestApp(t, repo))

	body, contentType := multipartImage(t, "image", pngBytes)
	req := withOwner(httptest.NewRequest(http.MethodPost, "/v1/ads", body), "alice@example.com")
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ID == "" || resp.Status != "completed" {
		t.Fatalf("response = %+v", resp)
	}
}

func TestCreateAdWithoutImageIsBadRequest(t *testing.T) {
	repo := &stubRepo{ads: make(map[string]*domain.Ad)}
	router := newRouter(newTestApp(t, repo))

	body, contentType := multipartImage(t, "wrong_field", pngBytes)
	req := withOwner(httptest.NewRequest(http.MethodPost, "/v1/ads", body), "alice@example.com")
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if len(repo.ads) != 0 {
		t.Fatal("rejected submission must not create a record")
	}
}

func TestCreateAdWithoutOwnerIsUnauthorized(t *testing.T) {
	repo := &stubRepo{ads: make(map[string]*domain.Ad)}
	router := newRouter(newTestApp(t, repo))

	body, contentType := multipartImage(t, "image", pngBytes)
	req := httptest.NewRequest(http.MethodPost, "/v1/ads", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestGetAdHidesForeignRecords(t *testing.T) {
	repo := &stubRepo{ads: map[string]*domain.Ad{
		"ad-1": {ID: "ad-1", OwnerEmail: "alice@example.com", Status: domain.AdStatusCompleted},
	}}
	router := newRouter(newTestApp(t, repo))

	req := withOwner(httptest.NewRequest(http.MethodGet, "/v1/ads/ad-1", nil), "mallory@example.com")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestListAdsScopesToOwner(t *testing.T) {
	repo := &stubRepo{ads: map[string]*domain.Ad{
		"ad-1": {ID: "ad-1", OwnerEmail: "alice@example.com", Status: domain.AdStatusCompleted},
		"ad-2": {ID: "ad-2", OwnerEmail: "bob@example.com", Status: domain.AdStatusCompleted},
	}}
	router := newRouter(newTestApp(t, repo))

	req := withOwner(httptest.NewRequest(http.MethodGet, "/v1/ads", nil), "alice@example.com")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Ads []adResponse `json:"ads"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Ads) != 1 || resp.Ads[0].ID != "ad-1" {
		t.Fatalf("ads = %+v", resp.Ads)
	}
}

func TestAnimateAdConflictWhenAlreadyInProgress(t *testing.T) {
	repo := &stubRepo{
		ads: map[string]*domain.Ad{
			"ad-1": {
				ID:         "ad-1",
				OwnerEmail: "alice@example.com",
				Status:     domain.AdStatusCompleted,
				PromptPlan: domain.PromptPlan{VideoPrompt: "motion"},
			},
		},
		markPending: domain.ErrStoreConflict,
	}
	router := newRouter(newTestApp(t, repo))

	req := withOwner(httptest.NewRequest(http.MethodPost, "/v1/ads/ad-1/video", nil), "alice@example.com")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409, body = %s", rec.Code, rec.Body.String())
	}
}

func TestAnimateAdUnknownAdIsNotFound(t *testing.T) {
	repo := &stubRepo{ads: make(map[string]*domain.Ad)}
	router := newRouter(newTestApp(t, repo))

	req := withOwner(httptest.NewRequest(http.MethodPost, "/v1/ads/missing/video", nil), "alice@example.com")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
