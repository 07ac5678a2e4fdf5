package chat

import "context"

// Part is one content element of an input block: text or an inline image.
type Part struct {
	Text string
	// ImageURL is a data URL; set for media parts only.
	ImageURL string
	Detail   string
}

// IsImage reports whether the part carries media.
func (p Part) IsImage() bool {
	return p.ImageURL != ""
}

// Block is one role-tagged entry of the provider input.
type Block struct {
	Role  string
	Parts []Part
	// Replayed marks blocks rebuilt from working history.
	Replayed bool
}

// Request is the provider-neutral completion request.
type Request struct {
	Instructions      string
	Input             []Block
	ContinuationToken string
	Effort            string
	MaxOutputTokens   int64
}

// Result is the normalized provider output.
type Result struct {
	// ID is the provider continuation token for the next turn.
	ID   string
	Text string
}

// Provider produces completions.
type Provider interface {
	Complete(ctx context.Context, req Request) (Result, error)
}
