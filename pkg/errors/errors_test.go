package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError(t *testing.T) {
	e1 := New("cause1")
	e2 := New("cause2").Wrap(e1)
	e := New("dummy").Wrap(e2)
	e3 := e.Unwrap()
	assert.True(t, Is(e, e1))
	assert.True(t, Is(e, e2))
	assert.True(t, e3 == e2)
	assert.Equal(t, "dummy: cause2: cause1", e.Error())
}

func TestSentinelNotMutated(t *testing.T) {
	sentinel := New("bad fd")
	wrapped := sentinel.Wrapf("fd %d", 12)

	assert.Nil(t, sentinel.Unwrap())
	assert.Equal(t, "bad fd", sentinel.Error())
	assert.Equal(t, "bad fd: fd 12", wrapped.Error())
	assert.True(t, Is(wrapped, sentinel))
	assert.True(t, Is(fmt.Errorf("context: %w", wrapped), sentinel))
	assert.False(t, Is(wrapped, New("bad fd")))

	var target *Error
	assert.True(t, As(fmt.Errorf("context: %w", wrapped), &target))
	assert.Equal(t, wrapped, target)
}
