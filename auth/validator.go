package auth

import (
	"unicode"

	"github.com/go-playground/validator/v10"

	"vanish-chat/errors"
)

var validate = validator.New()

// CredentialsRequest carries raw signup/login input before it touches
// any cryptographic or storage code.
type CredentialsRequest struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8,max=72"`
}

// ValidateCredentials checks email format, length bounds and minimal
// password variety. Cheap checks run before any hashing work.
func ValidateCredentials(req CredentialsRequest) error {
	if err := validate.Struct(req); err != nil {
		return err
	}
	if !hasLetterAndDigit(req.Password) {
		return errors.ErrInvalidPassword
	}
	return nil
}

func hasLetterAndDigit(s string) bool {
	var hasLetter, hasDigit bool
	for _, r := range s {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsNumber(r):
			hasDigit = true
		}
	}
	return hasLetter && hasDigit
}
