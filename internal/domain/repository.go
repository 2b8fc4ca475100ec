package domain

import "context"

// AdUpdate carries a partial update for an ad record. Nil fields are left
// untouched by the store.
type AdUpdate struct {
	Status         *AdStatus
	VideoStatus    *VideoStatus
	SourceImageURL *string
	ResultImageURL *string
	VideoURL       *string
	PromptPlan     *PromptPlan
	FailureReason  *FailureReason
}

// AdRepository defines persistence for ad records. Plain updates serve the
// create-ad flow, which owns its record exclusively; the video-status
// transition must go through the conditional MarkVideoPending so concurrent
// animate requests cannot both start a synthesis call.
type AdRepository interface {
	Create(ctx context.Context, ad *Ad) error
	Update(ctx context.Context, adID string, update AdUpdate) error
	// MarkVideoPending flips video_status to pending only when the current
	// value still matches one of the allowed prior states. It returns
	// ErrStoreConflict when the compare-and-set loses the race.
	MarkVideoPending(ctx context.Context, adID string, prior []VideoStatus) error
	GetByID(ctx context.Context, adID string) (*Ad, error)
	ListByOwner(ctx context.Context, ownerEmail string) ([]Ad, error)
}

// AdFeed is the owner-scoped change feed: every committed change to an ad is
// published and delivered to active subscribers of that owner.
type AdFeed interface {
	Publish(ctx context.Context, ad *Ad) error
	Subscribe(ctx context.Context, ownerEmail string) (<-chan Ad, func() error, error)
}

// UserRepository exposes the credit ledger consulted after a generation
// completes. Billing is a post-commit side effect and never gates the
// pipeline itself.
type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
	DeductCredits(ctx context.Context, email string, amount int) error
}
