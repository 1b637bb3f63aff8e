package apperror

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindMatching(t *testing.T) {
	err := Configuration("chunker", "overlap %d must be smaller than chunk size %d", 5, 5)

	assert.True(t, errors.Is(err, ErrConfiguration))
	assert.False(t, errors.Is(err, ErrValidation))
	assert.Equal(t, KindConfiguration, KindOf(err))
	assert.Contains(t, err.Error(), "overlap 5 must be smaller than chunk size 5")
}

func TestWrapKeepsExistingKind(t *testing.T) {
	inner := NamespaceConflict("pgvector", "namespace %q has dimension %d", "cv", 768)
	outer := IndexUnavailable("index.upsert", fmt.Errorf("batch 0: %w", inner))

	assert.Equal(t, KindNamespaceConflict, KindOf(outer))
	assert.False(t, IsRetryable(outer))
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Embedding("embed", nil))
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"index", IndexUnavailable("q", errors.New("dial tcp")), true},
		{"embedding", Embedding("e", context.DeadlineExceeded), true},
		{"generation", Generation("g", errors.New("502")), true},
		{"conflict", NamespaceConflict("ns", "dim"), false},
		{"validation", Validation("answer", "question is empty"), false},
		{"plain", errors.New("boom"), false},
		{"permanent embedding", &Error{Kind: KindEmbedding, Message: "input too long", Permanent: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "question must not be empty", UserMessage(Validation("answer", "question must not be empty")))
	assert.Contains(t, UserMessage(IndexUnavailable("q", errors.New("x"))), "temporarily unavailable")
	assert.Equal(t, "an unexpected error occurred", UserMessage(errors.New("x")))
}
