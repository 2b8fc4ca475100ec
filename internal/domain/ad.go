package domain

import "time"

// AdStatus enumerates the image-generation lifecycle of an ad.
type AdStatus string

const (
	AdStatusPending   AdStatus = "pending"
	AdStatusCompleted AdStatus = "completed"
	AdStatusFailed    AdStatus = "failed"
)

// VideoStatus enumerates the independent animation lifecycle. It stays
// "absent" until animation is requested for the ad.
type VideoStatus string

const (
	VideoStatusAbsent    VideoStatus = "absent"
	VideoStatusPending   VideoStatus = "pending"
	VideoStatusCompleted VideoStatus = "completed"
	VideoStatusFailed    VideoStatus = "failed"
)

// FailureReason identifies which pipeline step terminated a generation.
type FailureReason string

const (
	ReasonUploadFailed          FailureReason = "upload_failed"
	ReasonPromptSynthesisFailed FailureReason = "prompt_synthesis_failed"
	ReasonImageSynthesisFailed  FailureReason = "image_synthesis_failed"
	ReasonVideoSynthesisFailed  FailureReason = "video_synthesis_failed"
)

// PromptPlan is the synthesized prompt pair persisted with the ad so the
// animate flow can reuse the video prompt without re-deriving it. The JSON
// keys mirror the provider contract.
type PromptPlan struct {
	ImageEditPrompt string `json:"textToImage"`
	VideoPrompt     string `json:"imageToVideo"`
}

// IsZero reports whether no plan has been synthesized yet.
func (p PromptPlan) IsZero() bool {
	return p.ImageEditPrompt == "" && p.VideoPrompt == ""
}

// Ad is the central generation job record. It is created by the orchestrator
// at the start of the create-ad flow and mutated only by orchestration runs;
// the presentation layer observes it through the store's change feed.
type Ad struct {
	ID             string
	OwnerEmail     string
	Status         AdStatus
	VideoStatus    VideoStatus
	Description    string
	Size           string
	SourceImageURL string
	ResultImageURL string
	VideoURL       string
	PromptPlan     PromptPlan
	FailureReason  FailureReason
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CanStartVideo reports whether the animate flow may begin for this record.
// The image stage must be complete and no animation may be in flight or
// already delivered; a failed animation may be retried by the caller.
func (a *Ad) CanStartVideo() bool {
	if a.Status != AdStatusCompleted {
		return false
	}
	return a.VideoStatus == VideoStatusAbsent || a.VideoStatus == VideoStatusFailed
}

// Terminal reports whether the image stage has reached a final state.
func (s AdStatus) Terminal() bool {
	return s == AdStatusCompleted || s == AdStatusFailed
}
