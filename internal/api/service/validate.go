package service

import (
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func validEmail(email string) bool {
	return validate.Var(email, "required,email,max=320") == nil
}
