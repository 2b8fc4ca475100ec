package image

import "context"

// Request carries provider-agnostic inputs for image synthesis: the edit
// prompt derived by the prompt stage plus one or two reference images.
type Request struct {
	Prompt         string
	SourceImageURL string
	AvatarURL      string
	Size           string
	RequestID      string
}

// Asset is the provider-agnostic result. Providers return either inline
// bytes (Data) or a remote reference (URL); callers re-host bytes into the
// blob store and may use a remote reference directly. Format carries the
// asset's MIME type, e.g. "image/png".
type Asset struct {
	Data   []byte
	URL    string
	Format string
}

// Synthesizer produces the showcase image for an ad.
type Synthesizer interface {
	Synthesize(ctx context.Context, req Request) (*Asset, error)
}
