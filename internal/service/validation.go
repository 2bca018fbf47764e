package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"gestistock/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// BindingTag is the struct tag request shapes are declared with. gin's
// binder reads the same tag, so HTTP and direct callers see the same rules.
const BindingTag = "binding"

var requestValidator = newRequestValidator()

func newRequestValidator() *validator.Validate {
	v := validator.New()
	v.SetTagName(BindingTag)
	if err := RegisterValidations(v); err != nil {
		panic(err)
	}
	return v
}

// RegisterValidations adds the domain enum tags to v and makes it report
// fields by their json name.
func RegisterValidations(v *validator.Validate) error {
	v.RegisterTagNameFunc(jsonName)

	enums := map[string]func(string) bool{
		"category":        models.IsValidCategory,
		"unit":            models.IsValidUnit,
		"payment_method":  models.IsValidPaymentMethod,
		"sale_status":     models.IsValidSaleStatus,
		"client_status":   models.IsValidClientStatus,
		"supplier_status": models.IsValidSupplierStatus,
	}
	for tag, valid := range enums {
		valid := valid
		err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return valid(fl.Field().String())
		})
		if err != nil {
			return fmt.Errorf("failed to register %s validation: %w", tag, err)
		}
	}
	return nil
}

func jsonName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}

// checkShape runs the binding tags of req
func checkShape(req interface{}) error {
	return ValidationErrorFrom(requestValidator.Struct(req))
}

// ValidationErrorFrom turns the first validator failure in err into a
// ValidationError. Any other error, nil included, is returned unchanged.
func ValidationErrorFrom(err error) error {
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) || len(fields) == 0 {
		return err
	}
	fe := fields[0]
	return invalid(fieldPath(fe.Namespace()), describe(fe))
}

// fieldPath drops the struct name validator puts in front of the namespace
func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min", "max":
		bound := "at least"
		if fe.Tag() == "max" {
			bound = "at most"
		}
		switch fe.Kind() {
		case reflect.Slice:
			return fmt.Sprintf("must contain %s %s entries", bound, fe.Param())
		case reflect.String:
			return fmt.Sprintf("must be %s %s characters", bound, fe.Param())
		}
		return fmt.Sprintf("must be %s %s", bound, fe.Param())
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	}
	return fmt.Sprintf("unknown %s %q", strings.ReplaceAll(fe.Tag(), "_", " "), fmt.Sprint(fe.Value()))
}

// checkMoney rejects amounts the money columns would have to round
func checkMoney(field string, d decimal.Decimal) error {
	if d.IsNegative() {
		return invalid(field, "must not be negative")
	}
	if !models.IsStorableAmount(d) {
		return invalid(field, fmt.Sprintf("must have at most %d decimal places and stay below %s",
			models.MoneyPlaces, models.MaxAmount.String()))
	}
	return nil
}
