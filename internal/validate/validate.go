// Package validate checks request structs and reports failures as
// per-field messages keyed by JSON name.
//
// Messages keep the wording existing API clients already
// parse ("This field is required.", "Ensure this field has at least 40
// characters.").
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/sakif/deployhub/internal/apperror"
	"github.com/sakif/deployhub/internal/model"
)

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New()

	// Report fields by their JSON name, not the Go one.
	val.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Money is validated by shape: coefficient digits and exponent, never
	// its expanded text, so "1e999999999" costs as little as "1".
	val.RegisterCustomTypeFunc(func(f reflect.Value) any {
		if m, ok := f.Interface().(model.Money); ok {
			return m.Coefficient().String() + "e" + strconv.Itoa(int(m.Exponent()))
		}
		return nil
	}, model.Money{})

	mustRegister(val, "notblank", validators.NotBlank)
	mustRegister(val, "maxdigits", maxDigits)
	mustRegister(val, "maxplaces", maxPlaces)
	return val
}

func mustRegister(val *validator.Validate, tag string, fn validator.Func) {
	if err := val.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("validate: registering %q: %v", tag, err))
	}
}

// Struct validates s. It returns nil or an *apperror.AppError wrapping
// apperror.ErrValidation with one message per failing field.
func Struct(s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate: %w", err)
	}

	fields := make(map[string][]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = append(fields[fe.Field()], message(fe))
	}
	return apperror.InvalidFields(fields)
}

// Merge folds several validation errors into one. Non-validation errors
// are returned as they are.
func Merge(errs ...error) error {
	fields := map[string][]string{}
	for _, err := range errs {
		if err == nil {
			continue
		}
		var appErr *apperror.AppError
		if !errors.As(err, &appErr) || !errors.Is(err, apperror.ErrValidation) {
			return err
		}
		for name, msgs := range appErr.Fields {
			fields[name] = append(fields[name], msgs...)
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return apperror.InvalidFields(fields)
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "notblank":
		return "This field may not be blank."
	case "min":
		return fmt.Sprintf("Ensure this field has at least %s characters.", fe.Param())
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	case "oneof":
		return fmt.Sprintf("%q is not a valid choice.", fmt.Sprint(fe.Value()))
	case "maxdigits":
		return fmt.Sprintf("Ensure that there are no more than %s digits in total.", fe.Param())
	case "maxplaces":
		return fmt.Sprintf("Ensure that there are no more than %s decimal places.", fe.Param())
	default:
		return "Invalid value."
	}
}

// maxDigits checks the total number of significant digits of a decimal,
// e.g. 12345678.90 has 10. Trailing zeros after the point count.
func maxDigits(fl validator.FieldLevel) bool {
	limit, err := paramInt(fl.Param())
	if err != nil {
		return false
	}
	digits, _, ok := decimalShape(fl.Field().String())
	return ok && digits <= limit
}

func maxPlaces(fl validator.FieldLevel) bool {
	limit, err := paramInt(fl.Param())
	if err != nil {
		return false
	}
	_, places, ok := decimalShape(fl.Field().String())
	return ok && places <= limit
}

// decimalShape reads "<coefficient>e<exponent>" as produced by the Money
// type func.
func decimalShape(s string) (digits, places int, ok bool) {
	coef, rawExp, found := strings.Cut(s, "e")
	if !found || coef == "" {
		return 0, 0, false
	}
	exp, err := strconv.Atoi(rawExp)
	if err != nil {
		return 0, 0, false
	}
	digits = len(strings.TrimLeft(coef, "-"))
	if exp > 0 {
		digits += exp
	}
	if exp < 0 {
		places = -exp
		if places >= digits {
			// 0.05: coefficient "5", two places; count the places instead.
			digits = places
		}
	}
	return digits, places, true
}

func paramInt(p string) (int, error) {
	var n int
	_, err := fmt.Sscanf(p, "%d", &n)
	return n, err
}

// SortedFields returns the field names of a validation error in order.
// Handy for logging.
func SortedFields(err error) []string {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		return nil
	}
	names := make([]string, 0, len(appErr.Fields))
	for name := range appErr.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
