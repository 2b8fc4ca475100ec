package feed

import (
	"context"
	"sync"

	"github.com/khshakilahamed/ads-generator/internal/domain"
)

// MemoryFeed is an in-process fan-out used when no Redis instance is
// configured. Single-instance deployments and tests run on it.
type MemoryFeed struct {
	mu     sync.Mutex
	nextID int
	subs   map[string]map[int]chan domain.Ad
	buffer int
}

// NewMemoryFeed creates an in-process feed.
func NewMemoryFeed() *MemoryFeed {
	return &MemoryFeed{
		subs:   make(map[string]map[int]chan domain.Ad),
		buffer: 16,
	}
}

// Publish delivers the ad snapshot to every live subscriber of its owner.
// Subscribers that cannot keep up drop the message rather than block the
// pipeline.
func (f *MemoryFeed) Publish(_ context.Context, ad *domain.Ad) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.subs[ad.OwnerEmail] {
		select {
		case ch <- *ad:
		default:
		}
	}
	return nil
}

// Subscribe opens a stream of ad changes for the owner.
func (f *MemoryFeed) Subscribe(_ context.Context, ownerEmail string) (<-chan domain.Ad, func() error, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.nextID
	f.nextID++
	ch := make(chan domain.Ad, f.buffer)
	if f.subs[ownerEmail] == nil {
		f.subs[ownerEmail] = make(map[int]chan domain.Ad)
	}
	f.subs[ownerEmail][id] = ch

	cancel := func() error {
		f.mu.Lock()
		defer f.mu.Unlock()
		if sub, ok := f.subs[ownerEmail][id]; ok {
			delete(f.subs[ownerEmail], id)
			close(sub)
		}
		return nil
	}
	return ch, cancel, nil
}

var _ domain.AdFeed = (*MemoryFeed)(nil)
