// Package validate checks typed request structs against their validate tags
// and reports failures as apperr Validation errors.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/ariefcatur/go-takeout/internal/apperr"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	once sync.Once
	v    *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		v = validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
		// decimals validate as their float value so gte/gt work on money fields
		v.RegisterCustomTypeFunc(func(f reflect.Value) any {
			d, ok := f.Interface().(decimal.Decimal)
			if !ok {
				return nil
			}
			fl, _ := d.Float64()
			return fl
		}, decimal.Decimal{})
	})
	return v
}

// Struct validates s. The returned error, if any, is an *apperr.Error of
// KindValidation listing every failing field.
func Struct(s any) error {
	err := instance().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Wrap(apperr.KindValidation, err, "invalid request")
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s: %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s: %s", fe.Namespace(), fe.Tag()))
		}
	}
	return apperr.Validation("invalid request: %s", strings.Join(parts, "; "))
}
