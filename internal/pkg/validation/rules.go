// Package validation registers the custom binding rules used by request DTOs.
package validation

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/yigit/univote/internal/app/models"
)

// Register installs the custom tags on gin's validator and reports fields by
// their JSON name.
func Register() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected binding validator engine %T", binding.Validator.Engine())
	}
	return RegisterOn(v)
}

// RegisterOn installs the custom tags on v.
func RegisterOn(v *validator.Validate) error {
	v.RegisterTagNameFunc(jsonFieldName)

	if err := v.RegisterValidation("matricule", validateMatricule); err != nil {
		return fmt.Errorf("register matricule rule: %w", err)
	}
	if err := v.RegisterValidation("office", validateOffice); err != nil {
		return fmt.Errorf("register office rule: %w", err)
	}
	return nil
}

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return fld.Name
	}
	return name
}

func validateMatricule(fl validator.FieldLevel) bool {
	return models.ValidMatricule(strings.TrimSpace(fl.Field().String()))
}

func validateOffice(fl validator.FieldLevel) bool {
	_, err := models.ParseOffice(fl.Field().String())
	return err == nil
}
