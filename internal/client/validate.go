package client

import (
	"reflect"
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var symbolPattern = regexp.MustCompile(`^[A-Z0-9]{1,5}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// gt/gte tags compare decimals through their float value.
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	_ = v.RegisterValidation("stocksymbol", func(fl validator.FieldLevel) bool {
		return symbolPattern.MatchString(fl.Field().String())
	})
	return v
}

// ValidSymbol reports whether s looks like a ticker symbol
func ValidSymbol(s string) bool {
	return symbolPattern.MatchString(s)
}
