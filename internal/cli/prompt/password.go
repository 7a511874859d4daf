package prompt

import (
	"errors"

	"github.com/manifoldco/promptui"

	"github.com/marmos91/dittoftp/pkg/identity"
)

// ErrPasswordMismatch indicates passwords don't match.
var ErrPasswordMismatch = errors.New("passwords do not match")

// Password prompts for a password input with masking.
func Password(label string) (string, error) {
	prompt := promptui.Prompt{
		Label: label,
		Mask:  '*',
	}

	result, err := prompt.Run()
	return result, wrapError(err)
}

// NewPassword prompts for a new user password and its confirmation. The
// first entry is checked against the identity length limits while typing.
func NewPassword() (string, error) {
	prompt := promptui.Prompt{
		Label:    "Password",
		Mask:     '*',
		Validate: identity.ValidatePassword,
	}

	password, err := prompt.Run()
	if err != nil {
		return "", wrapError(err)
	}

	confirm, err := Password("Confirm password")
	if err != nil {
		return "", err
	}

	if password != confirm {
		return "", ErrPasswordMismatch
	}
	return password, nil
}
