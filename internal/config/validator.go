package config

import (
	"errors"
	"regexp"
	"sync"

	"github.com/go-playground/validator/v10"

	rigerrors "github.com/greenfuze/rig/pkg/errors"
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate

	versionPattern = regexp.MustCompile(`^\d+\.\d+(?:\.\d+)?$`)
	namePattern    = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)
)

// validatorInstance configures and returns the shared validator instance.
func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()

		_ = v.RegisterValidation("config_version", func(fl validator.FieldLevel) bool {
			return versionPattern.MatchString(fl.Field().String())
		})

		_ = v.RegisterValidation("entity_name", func(fl validator.FieldLevel) bool {
			return namePattern.MatchString(fl.Field().String())
		})

		validateInst = v
	})

	return validateInst
}

// Validate checks a parsed configuration against the field rules.
func Validate(cfg *Config) error {
	err := validatorInstance().Struct(cfg)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		first := fieldErrs[0]
		return rigerrors.NewValidationError(first.Namespace(), "failed rule "+first.Tag(), err)
	}
	return rigerrors.NewValidationError("", err.Error(), err)
}
