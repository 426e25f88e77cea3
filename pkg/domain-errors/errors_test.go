package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	t.Run("matches own code", func(t *testing.T) {
		err := New(CodeNotFound, "bill not found")
		assert.True(t, HasCode(err, CodeNotFound))
		assert.False(t, HasCode(err, CodeInternal))
	})

	t.Run("matches wrapped code", func(t *testing.T) {
		inner := New(CodeInsufficientFunds, "balance too low")
		outer := Wrap(inner, CodeStateConflict, "purchase aborted")
		assert.True(t, HasCode(outer, CodeStateConflict))
		assert.True(t, HasCode(outer, CodeInsufficientFunds))
	})

	t.Run("false for plain errors", func(t *testing.T) {
		assert.False(t, HasCode(errors.New("boom"), CodeInternal))
	})
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(cause, CodeInternal, "failed to persist deposit")

	require.ErrorIs(t, err, cause)
	assert.Equal(t, CodeInternal, CodeOf(err))
}

func TestCodeOfDefaultsToInternal(t *testing.T) {
	assert.Equal(t, CodeInternal, CodeOf(fmt.Errorf("unclassified")))
	assert.Equal(t, CodeInvalidInput, CodeOf(Validation("bad cusip")))
}
