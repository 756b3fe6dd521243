package core

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	// custom validation tags & texts
	alphaNumUnderTag   = "alphanum_"
	alphaNumUnderText  = "only alphanumeric characters and underscores are allowed"
	alphaNumUnderRegex = regexp.MustCompile(`^[\w\s]+$`)

	notBlankTag  = "notblank"
	notBlankText = "this field cannot be blank"

	clockTimeTag   = "hhmm"
	clockTimeText  = "must be a valid time of day (HH:MM)"
	clockTimeRegex = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

	weekdaysTag  = "weekdays"
	weekdaysText = "days of the week must be between 1 (Monday) and 7 (Sunday)"

	yearMonthTag   = "yyyymm"
	yearMonthText  = "must be a valid month (YYYY-MM)"
	yearMonthRegex = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

	requiredTag     = "required"
	requiredWithTag = "required_with"
	requiredText    = "this field is required"
)

// NewTranslator returns the english translator used for validation messages.
func NewTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

// InitValidators instantiates the validator for use.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// validate Dates like time.Time (`required` fails on the zero Date)
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(Date); ok {
			if d.IsZero() {
				return nil
			}
			return d.Time
		}
		return nil
	}, Date{})

	// register custom validators
	_ = validate.RegisterValidation(alphaNumUnderTag, alphaNumUnderValidation)
	RegisterCustomTranslation(validate, translator, alphaNumUnderTag, alphaNumUnderText)

	_ = validate.RegisterValidation(notBlankTag, notBlankValidation)
	RegisterCustomTranslation(validate, translator, notBlankTag, notBlankText)

	_ = validate.RegisterValidation(clockTimeTag, clockTimeValidation)
	RegisterCustomTranslation(validate, translator, clockTimeTag, clockTimeText)

	_ = validate.RegisterValidation(weekdaysTag, weekdaysValidation)
	RegisterCustomTranslation(validate, translator, weekdaysTag, weekdaysText)

	_ = validate.RegisterValidation(yearMonthTag, yearMonthValidation)
	RegisterCustomTranslation(validate, translator, yearMonthTag, yearMonthText)

	RegisterCustomTranslation(validate, translator, requiredTag, requiredText, true)
	RegisterCustomTranslation(validate, translator, requiredWithTag, requiredText, true)
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// IsClockTime reports whether s is a valid "HH:MM" time of day.
func IsClockTime(s string) bool {
	return clockTimeRegex.MatchString(s)
}

// Custom Global Validators

// alphaNumUnderValidation only allows alphanumeric characters and underscores.
func alphaNumUnderValidation(fl validator.FieldLevel) bool {
	return alphaNumUnderRegex.MatchString(fl.Field().String())
}

// notBlankValidation fails on strings made only of whitespace.
func notBlankValidation(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func clockTimeValidation(fl validator.FieldLevel) bool {
	return IsClockTime(fl.Field().String())
}

func yearMonthValidation(fl validator.FieldLevel) bool {
	return yearMonthRegex.MatchString(fl.Field().String())
}

// weekdaysValidation checks that every item of an int slice is an ISO weekday.
func weekdaysValidation(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.Slice {
		return false
	}
	for i := 0; i < field.Len(); i++ {
		if day := field.Index(i).Int(); day < 1 || day > 7 {
			return false
		}
	}
	return true
}
