// Package llm provides the language-model clients used for classification
// and job description generation.
package llm

import "context"

// Completer turns a single prompt into model text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Model() string
}

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

func (f CompleterFunc) Model() string {
	return "func"
}
