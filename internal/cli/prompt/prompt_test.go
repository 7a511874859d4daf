package prompt

import (
	"fmt"
	"testing"

	"github.com/manifoldco/promptui"
	"github.com/stretchr/testify/assert"
)

func TestParseAnswer(t *testing.T) {
	assert.True(t, parseAnswer("y", false))
	assert.True(t, parseAnswer(" YES ", false))
	assert.False(t, parseAnswer("n", true))
	assert.False(t, parseAnswer("maybe", true))
	assert.True(t, parseAnswer("", true))
	assert.False(t, parseAnswer("", false))
}

func TestWrapError(t *testing.T) {
	assert.ErrorIs(t, wrapError(promptui.ErrInterrupt), ErrAborted)
	assert.ErrorIs(t, wrapError(promptui.ErrEOF), ErrAborted)
	assert.NoError(t, wrapError(nil))

	other := fmt.Errorf("boom")
	assert.Equal(t, other, wrapError(other))
}

func TestIsAborted(t *testing.T) {
	assert.True(t, IsAborted(fmt.Errorf("user remove: %w", ErrAborted)))
	assert.False(t, IsAborted(ErrPasswordMismatch))
}

func TestConfirmWithForce(t *testing.T) {
	ok, err := ConfirmWithForce("Delete user alice?", true)
	assert.NoError(t, err)
	assert.True(t, ok)
}
