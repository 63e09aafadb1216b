package model

import (
	"errors"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	mustRegister(v, "finite", func(fl validator.FieldLevel) bool {
		f := fl.Field()
		switch f.Kind() {
		case reflect.Float32, reflect.Float64:
			return IsFinite(f.Float())
		}
		return true
	})
	mustRegister(v, "isodate", func(fl validator.FieldLevel) bool {
		return ValidDate(fl.Field().String())
	})
	mustRegister(v, "hhmm", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(TimeLayout, fl.Field().String())
		return err == nil
	})
	mustRegister(v, "weekday", func(fl validator.FieldLevel) bool {
		_, ok := weekdayIndex[fl.Field().String()]
		return ok
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}

// Validate checks v against its struct tags and returns a *ValidationError
// for the first failing field.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &ValidationError{Field: fieldPath(fe.Namespace()), Constraint: fe.Tag(), Param: fe.Param()}
	}
	return err
}

// fieldPath drops the root struct name from a validator namespace, so
// "MealTemplate.items[0].gramsDefault" becomes "items[0].gramsDefault".
func fieldPath(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func ValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// RequirePositive validates a free-standing numeric argument.
func RequirePositive(field string, v float64) error {
	if !IsFinite(v) {
		return invalid(field, "finite", "")
	}
	if v <= 0 {
		return invalid(field, "gt", "0")
	}
	return nil
}

func RequireDate(field, s string) error {
	if strings.TrimSpace(s) == "" {
		return invalid(field, "required", "")
	}
	if !ValidDate(s) {
		return invalid(field, "isodate", "")
	}
	return nil
}

func RequireID(field, s string) error {
	if strings.TrimSpace(s) == "" {
		return invalid(field, "required", "")
	}
	return nil
}
