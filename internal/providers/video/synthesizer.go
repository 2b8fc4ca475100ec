package video

import "context"

// Request carries provider-agnostic inputs for video synthesis: the finished
// showcase image and the motion prompt derived during prompt synthesis.
type Request struct {
	ImageURL  string
	Prompt    string
	RequestID string
}

// Asset is the provider-agnostic result of a video generation. Format
// carries the asset's MIME type, e.g. "video/mp4".
type Asset struct {
	URL    string
	Format string
}

// Synthesizer animates a generated showcase image into a short video.
type Synthesizer interface {
	Synthesize(ctx context.Context, req Request) (*Asset, error)
}
