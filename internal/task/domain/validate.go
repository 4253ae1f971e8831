package domain

import (
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared validator with the task rules registered
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("taskstatus", func(fl validator.FieldLevel) bool {
			return TaskStatus(fl.Field().String()).Valid()
		})
	})
	return validate
}

// Validate checks the field rules on t
func (t *Task) Validate() error {
	return Validator().Struct(t)
}
