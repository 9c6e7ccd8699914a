package attendance

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/masomo-ledger/core"
)

var (
	statusTag  = "attstatus"
	statusText = "must be one of present, absent, late, half-day or on-leave"
)

// InitValidators registers the attendance validation tags.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(statusTag, statusValidation)
	core.RegisterCustomTranslation(validate, translator, statusTag, statusText)
}

func (na NewAttendance) Validate(validate *validator.Validate, translator ut.Translator) error {
	return validateStruct(na, validate, translator)
}

func (ua UpdateAttendance) Validate(validate *validator.Validate, translator ut.Translator) error {
	return validateStruct(ua, validate, translator)
}

// validateStruct classifies failures: a bad status wins over a missing field,
// which wins over any other malformed value.
func validateStruct(s interface{}, validate *validator.Validate, translator ut.Translator) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	cause := ErrMalformedField
	for _, fe := range verrs {
		switch fe.Tag() {
		case statusTag:
			cause = ErrInvalidStatus
		case "required":
			if cause != ErrInvalidStatus {
				cause = ErrMissingField
			}
		}
	}
	return core.NewValidationError(cause, core.TranslateFieldErrors(verrs, translator)...)
}

// Custom Validators

// statusValidation checks that the status is one of Statuses
func statusValidation(fl validator.FieldLevel) bool {
	return Status(fl.Field().String()).Valid()
}
