package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/khshakilahamed/ads-generator/internal/domain"
)

// Querier is the narrow pgx surface the repository needs. *pgxpool.Pool
// satisfies it; tests substitute a stub.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// AdRepositoryPG implements domain.AdRepository on PostgreSQL.
type AdRepositoryPG struct {
	db Querier
}

// NewAdRepository creates a new ad repository backed by PostgreSQL.
func NewAdRepository(db Querier) *AdRepositoryPG {
	return &AdRepositoryPG{db: db}
}

const adColumns = `id, owner_email, status, video_status, description, size,
source_image_url, result_image_url, video_url, prompt_plan, failure_reason,
created_at, updated_at`

// Create inserts a new ad record.
func (r *AdRepositoryPG) Create(ctx context.Context, ad *domain.Ad) error {
	query := `
INSERT INTO ads (id, owner_email, status, video_status, description, size, source_image_url, result_image_url, video_url, prompt_plan, failure_reason)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);
`
	planJSON, err := json.Marshal(ad.PromptPlan)
	if err != nil {
		return fmt.Errorf("repo: encode prompt plan: %w", err)
	}
	_, err = r.db.Exec(ctx, query,
		ad.ID,
		ad.OwnerEmail,
		ad.Status,
		ad.VideoStatus,
		ad.Description,
		ad.Size,
		ad.SourceImageURL,
		ad.ResultImageURL,
		ad.VideoURL,
		planJSON,
		ad.FailureReason,
	)
	return err
}

// Update applies a partial update; nil fields keep their current value.
func (r *AdRepositoryPG) Update(ctx context.Context, adID string, update domain.AdUpdate) error {
	query := `
UPDATE ads
SET status = COALESCE($2, status),
    video_status = COALESCE($3, video_status),
    source_image_url = COALESCE($4, source_image_url),
    result_image_url = COALESCE($5, result_image_url),
    video_url = COALESCE($6, video_url),
    prompt_plan = COALESCE($7, prompt_plan),
    failure_reason = COALESCE($8, failure_reason),
    updated_at = NOW()
WHERE id = $1;
`
	var planJSON []byte
	if update.PromptPlan != nil {
		encoded, err := json.Marshal(update.PromptPlan)
		if err != nil {
			return fmt.Errorf("repo: encode prompt plan: %w", err)
		}
		planJSON = encoded
	}
	tag, err := r.db.Exec(ctx, query, adID,
		statusArg(update.Status),
		videoStatusArg(update.VideoStatus),
		update.SourceImageURL,
		update.ResultImageURL,
		update.VideoURL,
		planJSON,
		reasonArg(update.FailureReason),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MarkVideoPending is the compare-and-set transition guarding the animate
// flow: it only flips video_status to pending when the stored value still
// matches one of the allowed prior states. Losing the race yields
// ErrStoreConflict and must not trigger a synthesis call.
func (r *AdRepositoryPG) MarkVideoPending(ctx context.Context, adID string, prior []domain.VideoStatus) error {
	query := `
UPDATE ads
SET video_status = $2,
    updated_at = NOW()
WHERE id = $1
  AND video_status = ANY($3);
`
	allowed := make([]string, len(prior))
	for i, s := range prior {
		allowed[i] = string(s)
	}
	tag, err := r.db.Exec(ctx, query, adID, domain.VideoStatusPending, allowed)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrStoreConflict
	}
	return nil
}

// GetByID fetches an ad by its identifier.
func (r *AdRepositoryPG) GetByID(ctx context.Context, adID string) (*domain.Ad, error) {
	query := `SELECT ` + adColumns + ` FROM ads WHERE id = $1;`
	row := r.db.QueryRow(ctx, query, adID)
	ad, err := scanAd(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return ad, nil
}

// ListByOwner fetches all ads for an owner, newest first.
func (r *AdRepositoryPG) ListByOwner(ctx context.Context, ownerEmail string) ([]domain.Ad, error) {
	query := `SELECT ` + adColumns + ` FROM ads WHERE owner_email = $1 ORDER BY created_at DESC;`
	rows, err := r.db.Query(ctx, query, ownerEmail)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ads []domain.Ad
	for rows.Next() {
		ad, err := scanAd(rows)
		if err != nil {
			return nil, err
		}
		ads = append(ads, *ad)
	}
	return ads, rows.Err()
}

func scanAd(row pgx.Row) (*domain.Ad, error) {
	var ad domain.Ad
	var planJSON []byte
	if err := row.Scan(
		&ad.ID,
		&ad.OwnerEmail,
		&ad.Status,
		&ad.VideoStatus,
		&ad.Description,
		&ad.Size,
		&ad.SourceImageURL,
		&ad.ResultImageURL,
		&ad.VideoURL,
		&planJSON,
		&ad.FailureReason,
		&ad.CreatedAt,
		&ad.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(planJSON) > 0 {
		if err := json.Unmarshal(planJSON, &ad.PromptPlan); err != nil {
			return nil, fmt.Errorf("repo: decode prompt plan: %w", err)
		}
	}
	return &ad, nil
}

func statusArg(s *domain.AdStatus) *string {
	if s == nil {
		return nil
	}
	v := string(*s)
	return &v
}

func videoStatusArg(s *domain.VideoStatus) *string {
	if s == nil {
		return nil
	}
	v := string(*s)
	return &v
}

func reasonArg(r *domain.FailureReason) *string {
	if r == nil {
		return nil
	}
	v := string(*r)
	return &v
}

var _ domain.AdRepository = (*AdRepositoryPG)(nil)
