package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()

	// Use JSON tag names in error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Register custom validations
	registerCustomValidations()
}

func registerCustomValidations() {
	// Ledger currency validation
	validate.RegisterValidation("currency", func(fl validator.FieldLevel) bool {
		currency := fl.Field().String()
		validCurrencies := []string{"DIAMOND", "USDT", ""}
		for _, c := range validCurrencies {
			if currency == c {
				return true
			}
		}
		return false
	})

	// Claim target kind validation
	validate.RegisterValidation("target_kind", func(fl validator.FieldLevel) bool {
		kind := fl.Field().String()
		validKinds := []string{"task", "campaign"}
		for _, k := range validKinds {
			if kind == k {
				return true
			}
		}
		return false
	})

	// Ledger entry type validation (for list filters)
	validate.RegisterValidation("entry_type", func(fl validator.FieldLevel) bool {
		typ := fl.Field().String()
		validTypes := []string{
			"buy_diamonds", "convert_to_usdt", "withdraw_usdt",
			"campaign_spend", "task_earning", "task_reward", "admin_adjustment", "",
		}
		for _, t := range validTypes {
			if typ == t {
				return true
			}
		}
		return false
	})
}

// Validate validates a struct and returns a map of field errors
func Validate(s interface{}) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	errors := make(map[string]string)
	for _, err := range err.(validator.ValidationErrors) {
		field := err.Field()
		switch err.Tag() {
		case "required":
			errors[field] = "This field is required"
		case "min":
			errors[field] = "Value is too short (min: " + err.Param() + ")"
		case "max":
			errors[field] = "Value is too long (max: " + err.Param() + ")"
		case "gt":
			errors[field] = "Value must be greater than " + err.Param()
		case "gte":
			errors[field] = "Value must be at least " + err.Param()
		case "lte":
			errors[field] = "Value must be at most " + err.Param()
		case "currency":
			errors[field] = "Invalid currency. Must be: DIAMOND or USDT"
		case "target_kind":
			errors[field] = "Invalid target kind. Must be: task or campaign"
		case "entry_type":
			errors[field] = "Invalid transaction type"
		default:
			errors[field] = "Invalid value"
		}
	}

	return errors
}

// ValidateVar validates a single variable
func ValidateVar(field interface{}, tag string) error {
	return validate.Var(field, tag)
}
