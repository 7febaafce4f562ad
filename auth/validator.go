package auth

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"lan-chat/errors"
)

var validate = validator.New()

// LoginRequest carries one login attempt. The display name is validated
// before the credential store is ever consulted; the password only needs to
// be present because the first login defines it.
type LoginRequest struct {
	Username string `validate:"required,min=1,max=32,printascii,excludesall= "`
	Password string `validate:"required,min=1,max=72"`
}

func ValidateLogin(req LoginRequest) error {
	if err := validate.Struct(req); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		for _, fe := range verrs {
			if fe.Field() == "Password" {
				return fmt.Errorf("%w: password missing or too long", errors.ErrInvalidCredentials)
			}
		}
		return fmt.Errorf("%w: %v", errors.ErrInvalidIdentity, err)
	}
	return nil
}
