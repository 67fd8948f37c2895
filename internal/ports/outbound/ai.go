package outbound

import "context"

// TextCompleter is the text-understanding service. Its output is untrusted:
// callers must validate whatever comes back.
type TextCompleter interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// NamedCompleter is a TextCompleter that can report its provider and model.
type NamedCompleter interface {
	TextCompleter
	Provider() string
	Model() string
}
