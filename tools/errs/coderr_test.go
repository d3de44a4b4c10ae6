package errs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapMsgKeepsCode(t *testing.T) {
	err := ErrNotFound.WrapMsg("conversation", "conv", "c1")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrArgs))
	assert.Equal(t, RecordNotFoundError, CodeOf(err))
	assert.Contains(t, err.Error(), "conv=c1")
}

func TestIsMatchesByCodeAcrossDetails(t *testing.T) {
	a := ErrConflict.WrapMsg("first")
	b := ErrConflict.WithDetail("second").Wrap()
	assert.True(t, ErrConflict.Is(a))
	assert.True(t, ErrConflict.Is(b))
	assert.False(t, ErrConflict.Is(ErrUnavailable.Wrap()))
}

func TestCodeOfPlainError(t *testing.T) {
	assert.Equal(t, ServerInternalError, CodeOf(errors.New("boom")))
	assert.Equal(t, ServerInternalError, CodeOf(Wrap(errors.New("boom"))))
}

func TestWithDetailAccumulates(t *testing.T) {
	e := ErrArgs.WithDetail("one").WithDetail("two")
	assert.Equal(t, ArgsError, e.Code)
	assert.Contains(t, e.Error(), "one, two")
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(nil))
	assert.NoError(t, WrapMsg(nil, "ignored"))
}
