package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/nisalrtu/digibrand-cms-sub002/internal/models"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(JSONTagName)
	if err := RegisterValidations(v); err != nil {
		panic(err)
	}
	return v
}

// RegisterValidations installs the custom tags on v. Gin's binding engine
// gets the same tags so request structs and service inputs agree.
func RegisterValidations(v *validator.Validate) error {
	if err := v.RegisterValidation("payment_method", func(fl validator.FieldLevel) bool {
		return models.IsValidPaymentMethod(fl.Field().String())
	}); err != nil {
		return err
	}
	return v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		return models.IsValidRole(fl.Field().String())
	})
}

// JSONTagName reports struct fields by their JSON name in validation errors
func JSONTagName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	switch name {
	case "-":
		return ""
	case "":
		return fld.Name
	}
	return name
}

// validateStruct runs the validator and converts failures to ErrValidation
// with one message per field.
func validateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	fields := ValidationFields(err)
	if len(fields) == 0 {
		return withMessage(ErrValidation, "%v", err)
	}
	return withFields(ErrValidation, fields)
}

// ValidationFields maps validator errors to field → message
func ValidationFields(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fieldMessage(fe)
	}
	return fields
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "email":
		return "must be a valid email address"
	case "datetime":
		return "must be a date in YYYY-MM-DD format"
	case "payment_method":
		return "must be one of: " + strings.Join(models.PaymentMethods, ", ")
	case "role":
		return "must be one of: admin, staff, viewer"
	case "oneof":
		return "must be one of: " + fe.Param()
	}
	return fmt.Sprintf("failed %q validation", fe.Tag())
}
