package sim

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResourceUnavailableError_UnwrapsToSentinel(t *testing.T) {
	err := NewResourceUnavailable("ram", "not enough")
	assert.True(t, errors.Is(err, ErrResourceUnavailable))
}

func TestConfigErr_UnwrapsToSentinel(t *testing.T) {
	err := NewConfigError("hosts", "missing")
	assert.True(t, errors.Is(err, ErrConfig))
}

func TestNotFoundErr_UnwrapsToSentinel(t *testing.T) {
	err := NewNotFound("chain", "checkout")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestViolatef_PanicsWithInvariantViolation(t *testing.T) {
	defer func() {
		r := recover()
		iv, ok := r.(*InvariantViolation)
		if !ok {
			t.Fatalf("expected *InvariantViolation panic, got %T", r)
		}
		assert.True(t, errors.Is(iv, ErrInvariantViolation))
	}()
	Violatef("test.invariant", "boom %d", 1)
}
