package http

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var kanaRegex = regexp.MustCompile(`^[ァ-ヶー\x{3000} ]+$`)

// kanaValidation accepts katakana-only name readings on the mailing form.
func kanaValidation(fl validator.FieldLevel) bool {
	return kanaRegex.MatchString(fl.Field().String())
}

// RegisterValidations installs the portal's custom binding validators.
// Call once during server setup.
func RegisterValidations() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	return v.RegisterValidation("kana", kanaValidation)
}
