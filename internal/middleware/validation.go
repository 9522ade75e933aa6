package middleware

import (
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/raktseva/raktseva-api/internal/model"
)

// RegisterValidators installs the custom binding validators and makes
// validation errors report JSON field names.
func RegisterValidators() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}

	if err := v.RegisterValidation("bloodgroup", validBloodGroup); err != nil {
		panic(err)
	}

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return fld.Name
		}
		return name
	})
}

func validBloodGroup(fl validator.FieldLevel) bool {
	return model.IsValidBloodGroup(fl.Field().String())
}
