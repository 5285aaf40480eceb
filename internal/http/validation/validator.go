package validation

import (
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/sifan077/QuickLink/internal/app/service"
	"github.com/sifan077/QuickLink/internal/app/store"
)

var shortCodePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,32}$`)

var (
	validate *validator.Validate
	once     sync.Once
)

// Get returns the singleton validator instance
func Get() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
			return fld.Name
		})

		_ = validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			if fl.Field().Kind() != reflect.String {
				return false
			}
			return strings.TrimSpace(fl.Field().String()) != ""
		})

		_ = validate.RegisterValidation("http_url", func(fl validator.FieldLevel) bool {
			if fl.Field().Kind() != reflect.String {
				return false
			}
			return service.ValidURL(strings.TrimSpace(fl.Field().String()))
		})

		_ = validate.RegisterValidation("shortcode", func(fl validator.FieldLevel) bool {
			if fl.Field().Kind() != reflect.String {
				return false
			}
			return ValidShortCode(fl.Field().String())
		})
	})
	return validate
}

// Validate validates a struct and returns an error if invalid
func Validate(s any) error {
	return Get().Struct(s)
}

// ValidShortCode reports whether code can be requested as a custom short code.
// Codes reserved for fixed routes are refused. Surrounding whitespace is ignored.
func ValidShortCode(code string) bool {
	code = strings.TrimSpace(code)
	if !shortCodePattern.MatchString(code) {
		return false
	}
	return !store.IsReserved(code)
}
