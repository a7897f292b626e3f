package handlers

import (
	"fmt"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/nisalrtu/digibrand-cms-sub002/internal/services"
)

// SetupValidator teaches gin's binding validator the custom tags used by
// the service inputs and makes it report fields by their JSON name.
func SetupValidator() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
	}
	v.RegisterTagNameFunc(services.JSONTagName)
	return services.RegisterValidations(v)
}
