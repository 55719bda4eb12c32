package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var once sync.Once

// Init configures the global validator used by Gin's binding.
// - Uses json (or form) tag names in errors.
// - Registers the money and phone tags.
func Init() {
	once.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			Register(v)
		}
	})
}

// Register installs tag names and custom validations on v.
func Register(v *validator.Validate) {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})
	v.RegisterAlias("phone", "e164")
	_ = v.RegisterValidation("money", validateMoney)
}

// ParseMoney parses a non-negative amount that fits numeric(10,2).
func ParseMoney(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, errors.New("must be a decimal number")
	}
	if d.IsNegative() {
		return decimal.Zero, errors.New("must be greater than or equal to 0")
	}
	if d.Exponent() < -2 && !d.Equal(d.Round(2)) {
		return decimal.Zero, errors.New("must have at most 2 decimal places")
	}
	if d.GreaterThanOrEqual(decimal.New(1, 8)) {
		return decimal.Zero, errors.New("must have at most 8 digits before the decimal point")
	}
	return d.Round(2), nil
}

func validateMoney(fl validator.FieldLevel) bool {
	if fl.Field().Kind() != reflect.String {
		return false
	}
	_, err := ParseMoney(fl.Field().String())
	return err == nil
}

// ToDetails converts validation/binding errors into a map[field]message suitable for API error.details.
func ToDetails(err error) map[string]string {
	if err == nil {
		return nil
	}

	var se *json.SyntaxError
	var ute *json.UnmarshalTypeError
	if errors.As(err, &se) || errors.As(err, &ute) {
		return map[string]string{"payload": "invalid json"}
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			out[fe.Field()] = formatFieldError(fe)
		}
		return out
	}

	return map[string]string{"payload": "invalid payload"}
}

func formatFieldError(fe validator.FieldError) string {
	param := fe.Param()
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "e164", "phone":
		return "must be a valid phone number in E.164 format"
	case "money":
		if v := reflect.Indirect(reflect.ValueOf(fe.Value())); v.Kind() == reflect.String {
			if _, err := ParseMoney(v.String()); err != nil {
				return err.Error()
			}
		}
		return "must be a valid amount"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", param)
		}
		return "must be at least " + param
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", param)
		}
		return "must be at most " + param
	case "oneof":
		return "must be one of: " + strings.Join(strings.Fields(param), ", ")
	case "eqfield":
		return "must match " + param
	case "nefield":
		return "must differ from " + param
	default:
		return "is invalid"
	}
}
