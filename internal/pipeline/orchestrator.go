// Package pipeline runs the ad generation flows end to end: validate the
// submission, persist a pending record, upload the source image, synthesize
// the prompt plan and the ad image, and optionally animate a completed ad
// into a short video. Every state change is committed to the store before
// being published to the change feed.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/khshakilahamed/ads-generator/internal/domain"
	"github.com/khshakilahamed/ads-generator/internal/providers"
	"github.com/khshakilahamed/ads-generator/internal/providers/image"
	"github.com/khshakilahamed/ads-generator/internal/providers/prompt"
	"github.com/khshakilahamed/ads-generator/internal/providers/video"
	"github.com/khshakilahamed/ads-generator/internal/retry"
	"github.com/khshakilahamed/ads-generator/internal/storage"
)

const defaultMaxUploadBytes = 5 << 20

// Options wires the orchestrator's collaborators.
type Options struct {
	Repo    domain.AdRepository
	Users   domain.UserRepository
	Feed    domain.AdFeed
	Blobs   storage.BlobStore
	Prompts prompt.Synthesizer
	Images  image.Synthesizer
	Videos  video.Synthesizer
	Logger  zerolog.Logger

	// MaxUploadBytes caps the submitted product image. Defaults to 5 MiB.
	MaxUploadBytes int64
	// PromptRetry bounds re-attempts of prompt synthesis after transient
	// provider failures. Image and video synthesis are never retried
	// automatically.
	PromptRetry retry.Policy
	// ProviderTimeout caps each individual provider call. Zero means the
	// request context alone bounds the call.
	ProviderTimeout time.Duration
	// CreditsPerAd is deducted from the owner's balance after a generation
	// completes. Zero disables billing.
	CreditsPerAd int
	// HTTPClient fetches provider-hosted video output for re-hosting.
	HTTPClient *http.Client
}

// Orchestrator drives the create and animate flows.
type Orchestrator struct {
	repo    domain.AdRepository
	users   domain.UserRepository
	feed    domain.AdFeed
	blobs   storage.BlobStore
	prompts prompt.Synthesizer
	images  image.Synthesizer
	videos  video.Synthesizer
	logger  zerolog.Logger

	maxUploadBytes  int64
	promptRetry     retry.Policy
	providerTimeout time.Duration
	creditsPerAd    int
	httpClient      *http.Client
}

// New creates an orchestrator. Repo, Blobs, Prompts and Images are required;
// Videos is only needed when the animate flow is exposed.
func New(opts Options) (*Orchestrator, error) {
	if opts.Repo == nil {
		return nil, errors.New("pipeline: ad repository is required")
	}
	if opts.Blobs == nil {
		return nil, errors.New("pipeline: blob store is required")
	}
	if opts.Prompts == nil {
		return nil, errors.New("pipeline: prompt synthesizer is required")
	}
	if opts.Images == nil {
		return nil, errors.New("pipeline: image synthesizer is required")
	}
	maxUpload := opts.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = defaultMaxUploadBytes
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	promptRetry := opts.PromptRetry
	if promptRetry.Retryable == nil {
		promptRetry.Retryable = providers.IsTransient
	}
	return &Orchestrator{
		repo:            opts.Repo,
		users:           opts.Users,
		feed:            opts.Feed,
		blobs:           opts.Blobs,
		prompts:         opts.Prompts,
		images:          opts.Images,
		videos:          opts.Videos,
		logger:          opts.Logger,
		maxUploadBytes:  maxUpload,
		promptRetry:     promptRetry,
		providerTimeout: opts.ProviderTimeout,
		creditsPerAd:    opts.CreditsPerAd,
		httpClient:      httpClient,
	}, nil
}

// CreateAdInput is a validated-on-entry ad submission.
type CreateAdInput struct {
	OwnerEmail  string
	ImageData   []byte
	ContentType string
	Description string
	Size        string
	AvatarURL   string
}

// CreateAd runs the full generation flow. Validation happens before any
// record exists, so a rejected submission leaves no trace. After the pending
// record is created, every failure is committed to it with a reason and the
// record's error is returned to the caller.
func (o *Orchestrator) CreateAd(ctx context.Context, in CreateAdInput) (*domain.Ad, error) {
	if err := o.validateCreate(in); err != nil {
		return nil, err
	}

	ad := &domain.Ad{
		ID:          uuid.NewString(),
		OwnerEmail:  in.OwnerEmail,
		Status:      domain.AdStatusPending,
		VideoStatus: domain.VideoStatusAbsent,
		Description: strings.TrimSpace(in.Description),
		Size:        in.Size,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	if err := o.repo.Create(ctx, ad); err != nil {
		return nil, fmt.Errorf("pipeline: create record: %w", err)
	}
	o.publish(ctx, ad)
	logger := o.logger.With().Str("ad_id", ad.ID).Str("owner", ad.OwnerEmail).Logger()

	sourceURL, err := o.blobs.Upload(ctx, "ads/"+ad.ID+"/source"+contentExt(in.ContentType), in.ImageData, in.ContentType)
	if err != nil {
		logger.Error().Err(err).Msg("source image upload failed")
		return ad, o.fail(ctx, ad, domain.ReasonUploadFailed, fmt.Errorf("%w: %v", domain.ErrUploadFailed, err))
	}
	if err := o.commit(ctx, ad, domain.AdUpdate{SourceImageURL: &sourceURL}); err != nil {
		return ad, err
	}

	plan, err := o.synthesizePlan(ctx, ad, in.AvatarURL)
	if err != nil {
		logger.Error().Err(err).Msg("prompt synthesis failed")
		return ad, o.fail(ctx, ad, domain.ReasonPromptSynthesisFailed, fmt.Errorf("%w: %v", domain.ErrPromptSynthesis, err))
	}
	if err := o.commit(ctx, ad, domain.AdUpdate{PromptPlan: plan}); err != nil {
		return ad, err
	}

	resultURL, err := o.synthesizeImage(ctx, ad, in.AvatarURL)
	if err != nil {
		logger.Error().Err(err).Msg("image synthesis failed")
		return ad, o.fail(ctx, ad, domain.ReasonImageSynthesisFailed, fmt.Errorf("%w: %v", domain.ErrImageSynthesis, err))
	}

	completed := domain.AdStatusCompleted
	if err := o.commit(ctx, ad, domain.AdUpdate{Status: &completed, ResultImageURL: &resultURL}); err != nil {
		return ad, err
	}
	logger.Info().Str("result_url", resultURL).Msg("ad generation completed")

	o.deductCredits(ctx, ad.OwnerEmail)
	return ad, nil
}

// AnimateAdInput identifies the ad to animate. MotionPrompt overrides the
// video prompt stored in the ad's prompt plan.
type AnimateAdInput struct {
	AdID         string
	OwnerEmail   string
	MotionPrompt string
}

// AnimateAd turns a completed ad image into a short video. The pending
// transition is a conditional store write, so concurrent requests for the
// same ad resolve to exactly one synthesis call; the losers get
// ErrAlreadyInProgress.
func (o *Orchestrator) AnimateAd(ctx context.Context, in AnimateAdInput) (*domain.Ad, error) {
	if o.videos == nil {
		return nil, fmt.Errorf("%w: video synthesis is not configured", domain.ErrValidation)
	}
	ad, err := o.repo.GetByID(ctx, in.AdID)
	if err != nil {
		return nil, err
	}
	if in.OwnerEmail != "" && ad.OwnerEmail != in.OwnerEmail {
		return nil, domain.ErrUnauthorized
	}
	if ad.Status != domain.AdStatusCompleted {
		return nil, fmt.Errorf("%w: ad is not completed", domain.ErrValidation)
	}
	motionPrompt := strings.TrimSpace(in.MotionPrompt)
	if motionPrompt == "" {
		motionPrompt = strings.TrimSpace(ad.PromptPlan.VideoPrompt)
	}
	if motionPrompt == "" {
		return nil, fmt.Errorf("%w: no motion prompt available", domain.ErrValidation)
	}

	err = o.repo.MarkVideoPending(ctx, ad.ID, []domain.VideoStatus{domain.VideoStatusAbsent, domain.VideoStatusFailed})
	if err != nil {
		if errors.Is(err, domain.ErrStoreConflict) {
			return nil, domain.ErrAlreadyInProgress
		}
		return nil, fmt.Errorf("pipeline: mark video pending: %w", err)
	}
	ad.VideoStatus = domain.VideoStatusPending
	o.publish(ctx, ad)
	logger := o.logger.With().Str("ad_id", ad.ID).Str("owner", ad.OwnerEmail).Logger()

	asset, err := o.synthesizeVideo(ctx, ad, motionPrompt)
	if err != nil {
		logger.Error().Err(err).Msg("video synthesis failed")
		return ad, o.failVideo(ctx, ad, domain.ReasonVideoSynthesisFailed, fmt.Errorf("%w: %v", domain.ErrVideoSynthesis, err))
	}

	videoURL, err := o.rehostVideo(ctx, ad.ID, asset)
	if err != nil {
		logger.Error().Err(err).Msg("video re-host failed")
		return ad, o.failVideo(ctx, ad, domain.ReasonUploadFailed, fmt.Errorf("%w: %v", domain.ErrUploadFailed, err))
	}

	completed := domain.VideoStatusCompleted
	if err := o.commit(ctx, ad, domain.AdUpdate{VideoStatus: &completed, VideoURL: &videoURL}); err != nil {
		return ad, err
	}
	logger.Info().Str("video_url", videoURL).Msg("ad animation completed")
	return ad, nil
}

func (o *Orchestrator) validateCreate(in CreateAdInput) error {
	if strings.TrimSpace(in.OwnerEmail) == "" {
		return fmt.Errorf("%w: owner email is required", domain.ErrValidation)
	}
	if len(in.ImageData) == 0 {
		return fmt.Errorf("%w: product image is required", domain.ErrValidation)
	}
	if int64(len(in.ImageData)) > o.maxUploadBytes {
		return fmt.Errorf("%w: product image exceeds %d bytes", domain.ErrValidation, o.maxUploadBytes)
	}
	return nil
}

func (o *Orchestrator) synthesizePlan(ctx context.Context, ad *domain.Ad, avatarURL string) (*domain.PromptPlan, error) {
	var plan *domain.PromptPlan
	err := o.promptRetry.Do(ctx, func(ctx context.Context) error {
		callCtx, cancel := o.callContext(ctx)
		defer cancel()
		p, err := o.prompts.Synthesize(callCtx, prompt.Request{
			ImageURL:    ad.SourceImageURL,
			AvatarURL:   avatarURL,
			Description: ad.Description,
			Size:        ad.Size,
		})
		if err != nil {
			return err
		}
		plan = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return plan, nil
}

func (o *Orchestrator) synthesizeImage(ctx context.Context, ad *domain.Ad, avatarURL string) (string, error) {
	callCtx, cancel := o.callContext(ctx)
	defer cancel()
	asset, err := o.images.Synthesize(callCtx, image.Request{
		Prompt:         ad.PromptPlan.ImageEditPrompt,
		SourceImageURL: ad.SourceImageURL,
		AvatarURL:      avatarURL,
		Size:           ad.Size,
		RequestID:      ad.ID,
	})
	if err != nil {
		return "", err
	}
	if len(asset.Data) > 0 {
		contentType := asset.Format
		if contentType == "" {
			contentType = "image/png"
		}
		return o.blobs.Upload(ctx, "ads/"+ad.ID+"/result"+contentExt(contentType), asset.Data, contentType)
	}
	if asset.URL == "" {
		return "", errors.New("pipeline: image provider returned no output")
	}
	// Provider-hosted output expires; pull it in and host it ourselves.
	data, contentType, err := o.fetch(ctx, asset.URL)
	if err != nil {
		return "", err
	}
	return o.blobs.Upload(ctx, "ads/"+ad.ID+"/result"+contentExt(contentType), data, contentType)
}

func (o *Orchestrator) synthesizeVideo(ctx context.Context, ad *domain.Ad, motionPrompt string) (*video.Asset, error) {
	callCtx, cancel := o.callContext(ctx)
	defer cancel()
	return o.videos.Synthesize(callCtx, video.Request{
		ImageURL:  ad.ResultImageURL,
		Prompt:    motionPrompt,
		RequestID: ad.ID,
	})
}

func (o *Orchestrator) rehostVideo(ctx context.Context, adID string, asset *video.Asset) (string, error) {
	data, contentType, err := o.fetch(ctx, asset.URL)
	if err != nil {
		return "", err
	}
	if contentType == "" || !strings.HasPrefix(contentType, "video/") {
		contentType = asset.Format
	}
	if contentType == "" || !strings.HasPrefix(contentType, "video/") {
		contentType = "video/mp4"
	}
	return o.blobs.Upload(ctx, "ads/"+adID+"/video"+contentExt(contentType), data, contentType)
}

func (o *Orchestrator) fetch(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("pipeline: build fetch request: %w", err)
	}
	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("pipeline: fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("pipeline: fetch %s: status %d", url, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("pipeline: read %s: %w", url, err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

// commit writes the update to the store, mirrors it onto the in-memory
// snapshot, and publishes the committed state to the feed.
func (o *Orchestrator) commit(ctx context.Context, ad *domain.Ad, update domain.AdUpdate) error {
	if err := o.repo.Update(ctx, ad.ID, update); err != nil {
		return fmt.Errorf("pipeline: update record: %w", err)
	}
	applyUpdate(ad, update)
	o.publish(ctx, ad)
	return nil
}

func (o *Orchestrator) fail(ctx context.Context, ad *domain.Ad, reason domain.FailureReason, cause error) error {
	failed := domain.AdStatusFailed
	if err := o.commit(ctx, ad, domain.AdUpdate{Status: &failed, FailureReason: &reason}); err != nil {
		o.logger.Error().Err(err).Str("ad_id", ad.ID).Msg("could not record failure")
	}
	return cause
}

func (o *Orchestrator) failVideo(ctx context.Context, ad *domain.Ad, reason domain.FailureReason, cause error) error {
	failed := domain.VideoStatusFailed
	if err := o.commit(ctx, ad, domain.AdUpdate{VideoStatus: &failed, FailureReason: &reason}); err != nil {
		o.logger.Error().Err(err).Str("ad_id", ad.ID).Msg("could not record video failure")
	}
	return cause
}

func (o *Orchestrator) publish(ctx context.Context, ad *domain.Ad) {
	if o.feed == nil {
		return
	}
	if err := o.feed.Publish(ctx, ad); err != nil {
		o.logger.Warn().Err(err).Str("ad_id", ad.ID).Msg("feed publish failed")
	}
}

func (o *Orchestrator) deductCredits(ctx context.Context, ownerEmail string) {
	if o.users == nil || o.creditsPerAd <= 0 {
		return
	}
	if err := o.users.DeductCredits(ctx, ownerEmail, o.creditsPerAd); err != nil {
		o.logger.Warn().Err(err).Str("owner", ownerEmail).Msg("credit deduction failed")
	}
}

func (o *Orchestrator) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.providerTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, o.providerTimeout)
}

func applyUpdate(ad *domain.Ad, update domain.AdUpdate) {
	if update.Status != nil {
		ad.Status = *update.Status
	}
	if update.VideoStatus != nil {
		ad.VideoStatus = *update.VideoStatus
	}
	if update.SourceImageURL != nil {
		ad.SourceImageURL = *update.SourceImageURL
	}
	if update.ResultImageURL != nil {
		ad.ResultImageURL = *update.ResultImageURL
	}
	if update.VideoURL != nil {
		ad.VideoURL = *update.VideoURL
	}
	if update.PromptPlan != nil {
		ad.PromptPlan = *update.PromptPlan
	}
	if update.FailureReason != nil {
		ad.FailureReason = *update.FailureReason
	}
	ad.UpdatedAt = time.Now().UTC()
}

func contentExt(contentType string) string {
	switch contentType {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/png":
		return ".png"
	case "video/mp4":
		return ".mp4"
	case "video/webm":
		return ".webm"
	default:
		return ".bin"
	}
}
