package common

import (
	"CourseMarket/internal/models"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const (
	notBlankTag        = "notblank"
	installmentPlanTag = "installment_plan"
	paymentTypeTag     = "payment_type"
)

// RegisterValidators installs the custom tags on gin's validator engine and makes error
// messages use json field names. Safe to call more than once.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("unexpected validator engine")
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation(notBlankTag, notBlank); err != nil {
		return err
	}
	if err := v.RegisterValidation(installmentPlanTag, installmentPlan); err != nil {
		return err
	}
	return v.RegisterValidation(paymentTypeTag, paymentType)
}

func notBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// installmentPlan accepts zero (no plan) or one of the purchasable counts.
func installmentPlan(fl validator.FieldLevel) bool {
	n := int(fl.Field().Int())
	return n == 0 || models.IsAllowedInstallmentCount(n)
}

func paymentType(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return s == models.PaymentTypeFull || s == models.PaymentTypeInstallment
}

// ValidationMessage turns binding errors into one readable line.
func ValidationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid request body"
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required", notBlankTag:
			parts = append(parts, fe.Field()+" is required")
		case installmentPlanTag:
			parts = append(parts, fmt.Sprintf("%s must be one of %v", fe.Field(), models.AllowedInstallmentCounts))
		case paymentTypeTag:
			parts = append(parts, fe.Field()+" must be full or installment")
		case "min", "max", "gte", "lte":
			parts = append(parts, fmt.Sprintf("%s must be %s %s", fe.Field(), fe.Tag(), fe.Param()))
		default:
			parts = append(parts, fe.Field()+" is invalid")
		}
	}
	return strings.Join(parts, "; ")
}
