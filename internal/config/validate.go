// internal/config/validate.go
package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	custom_errors "github-activity-mirror/internal/errors"
)

var (
	validatorOnce   sync.Once
	structValidator *validator.Validate
	translator      ut.Translator
)

// configValidator returns the shared validator. Messages name fields by their
// configuration key.
func configValidator() (*validator.Validate, ut.Translator) {
	validatorOnce.Do(func() {
		enLoc := en.New()
		uni := ut.New(enLoc, enLoc)
		translator, _ = uni.GetTranslator("en")

		structValidator = validator.New(validator.WithRequiredStructEnabled())
		structValidator.RegisterTagNameFunc(func(fld reflect.StructField) string {
			if tag := fld.Tag.Get("mapstructure"); tag != "" && tag != "-" {
				return tag
			}
			return fld.Name
		})
		_ = en_translations.RegisterDefaultTranslations(structValidator, translator)
	})
	return structValidator, translator
}

// validate checks cfg against its struct tags. An absent required value is reported as
// ErrMissingConfig; any other violation carries the translated message.
func validate(cfg *Config) error {
	v, trans := configValidator()
	err := v.Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required", "min":
		return &custom_errors.ErrMissingConfig{Field: fe.Field()}
	default:
		return fmt.Errorf("invalid configuration: %s", fe.Translate(trans))
	}
}
