package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

const (
	// IdentifierLength is the length of a resource's public identifier.
	IdentifierLength = 8
	// MaxIdentifierAttempts bounds the re-sampling loop.
	MaxIdentifierAttempts = 1000
)

// ErrIdentifierExhausted is returned when every sampled identifier was taken.
var ErrIdentifierExhausted = errors.New("no free resource identifier")

// IdentifierGenerator draws short random identifiers, re-sampling on collision.
type IdentifierGenerator struct {
	// Random returns a fresh random string of at least IdentifierLength characters.
	Random      func() string
	MaxAttempts int
}

func NewIdentifierGenerator() *IdentifierGenerator {
	return &IdentifierGenerator{Random: uuid.NewString, MaxAttempts: MaxIdentifierAttempts}
}

// Next returns the first sampled identifier for which taken reports false.
func (g *IdentifierGenerator) Next(ctx context.Context, taken func(ctx context.Context, id string) (bool, error)) (string, error) {
	attempts := g.MaxAttempts
	if attempts <= 0 {
		attempts = MaxIdentifierAttempts
	}
	random := g.Random
	if random == nil {
		random = uuid.NewString
	}

	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		candidate := random()
		if len(candidate) < IdentifierLength {
			return "", fmt.Errorf("random source returned %q, need %d characters", candidate, IdentifierLength)
		}
		candidate = candidate[:IdentifierLength]

		exists, err := taken(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check identifier %s: %w", candidate, err)
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w after %d attempts", ErrIdentifierExhausted, attempts)
}
