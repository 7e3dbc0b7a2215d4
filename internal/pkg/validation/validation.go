// Package validation wraps go-playground/validator with English messages
// keyed by form field name.
package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	Validate   *validator.Validate
	Translator ut.Translator

	notBlankTag = "notblank"
)

func init() {
	Validate = validator.New()

	_en := en.New()
	uni := ut.New(_en, _en)
	Translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(Validate, Translator)

	// Use form tag names so errors line up with the inputs.
	Validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	_ = Validate.RegisterValidation(notBlankTag, notBlankValidation)

	override("required", "This value should not be blank.")
	override(notBlankTag, "This value should not be blank.")
	override("eqfield", "The password fields must match.")
	override("email", "This value is not a valid email address.")
	override("max", "This value is too long. It should have {0} characters or less.")
	override("min", "This value is too short. It should have {0} characters or more.")
}

func override(tag, text string) {
	_ = Validate.RegisterTranslation(tag, Translator,
		func(t ut.Translator) error { return t.Add(tag, text, true) },
		translate,
	)
}

func translate(t ut.Translator, fe validator.FieldError) string {
	kind := fe.Kind()
	if fe.Tag() == "max" || fe.Tag() == "min" {
		if kind != reflect.String {
			return numericMessage(fe)
		}
	}
	msg, err := t.T(fe.Tag(), fe.Param())
	if err != nil {
		return fe.Error()
	}
	return msg
}

func numericMessage(fe validator.FieldError) string {
	if fe.Tag() == "max" {
		return "This value should be " + fe.Param() + " or less."
	}
	return "This value should be " + fe.Param() + " or more."
}

func notBlankValidation(fl validator.FieldLevel) bool {
	if str, ok := fl.Field().Interface().(string); ok {
		return strings.TrimSpace(str) != ""
	}
	return false
}

// Struct validates v and returns messages by form field, or nil when valid.
func Struct(v any) map[string]string {
	err := Validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"": err.Error()}
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		if _, seen := out[fe.Field()]; seen {
			continue
		}
		out[fe.Field()] = fe.Translate(Translator)
	}
	return out
}
