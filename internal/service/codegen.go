package service

import (
	"context"
	"fmt"

	"github.com/darkodi/shortlink/internal/encoder"
	"github.com/darkodi/shortlink/internal/errors"
)

type codeChecker interface {
	ExistsByCode(ctx context.Context, code string) (bool, error)
}

// CodeGenerator draws random alphanumeric codes until it finds one the
// store does not know, giving up after maxAttempts draws.
type CodeGenerator struct {
	store       codeChecker
	length      int
	maxAttempts int
	random      func(n int) (string, error)
}

func NewCodeGenerator(store codeChecker, length, maxAttempts int) *CodeGenerator {
	return &CodeGenerator{
		store:       store,
		length:      length,
		maxAttempts: maxAttempts,
		random:      encoder.Random,
	}
}

// Generate returns an unused code or a GENERATION_FAILED error
func (g *CodeGenerator) Generate(ctx context.Context) (string, error) {
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		code, err := g.random(g.length)
		if err != nil {
			return "", fmt.Errorf("generate code: %w", err)
		}

		exists, err := g.store.ExistsByCode(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check code %s: %w", code, err)
		}
		if !exists {
			return code, nil
		}
	}
	return "", errors.GenerationExhausted(g.maxAttempts)
}
