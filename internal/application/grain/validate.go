package grain

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/domain"
)

// validator.Validate es seguro entre goroutines y cachea los structs.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateInput aplica los tags `validate` del DTO y traduce el primer fallo a ValidationError.
func validateInput(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) || len(ves) == 0 {
		return domain.NewValidationError("", err.Error())
	}
	ve := ves[0]
	return domain.NewValidationError(ve.Field(), reasonFor(ve))
}

func reasonFor(ve validator.FieldError) string {
	switch ve.Tag() {
	case "required":
		return "es requerido"
	case "oneof":
		return "debe ser uno de: " + ve.Param()
	case "min":
		return "debe ser al menos " + ve.Param()
	case "max":
		return "excede el máximo " + ve.Param()
	default:
		return "no cumple la regla " + ve.Tag()
	}
}
