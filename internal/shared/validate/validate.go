// Package validate wraps go-playground/validator and reports failures as validation errors.
package validate

import (
	"context"
	"errors"
	"strings"

	"github.com/Nguyentram30/Real-time-student-activity-management-CI-CD-Pipeline-sub000/internal/shared/apperr"
	"github.com/go-playground/validator/v10"
)

var global = New()

func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// Struct validates s and converts the first failure into an apperr validation error.
func Struct(ctx context.Context, s any) error {
	err := global.StructCtx(ctx, s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperr.Validation(err.Error())
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required", "notblank":
		return apperr.Validationf("%s is required", field)
	case "min", "gte":
		return apperr.Validationf("%s is below minimum %s", field, fe.Param())
	case "max", "lte":
		return apperr.Validationf("%s exceeds maximum %s", field, fe.Param())
	case "oneof":
		return apperr.Validationf("%s must be one of [%s]", field, fe.Param())
	case "url":
		return apperr.Validationf("%s must be a valid url", field)
	case "latitude", "longitude":
		return apperr.Validationf("%s is not a valid coordinate", field)
	default:
		return apperr.Validationf("%s is invalid", field)
	}
}
