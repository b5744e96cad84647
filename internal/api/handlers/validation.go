package handlers

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"propflow/api/internal/models"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9][0-9 ()-]{6,19}$`)

// enumValues lists the accepted values of each taxonomy tag for messages.
var enumValues = map[string]string{
	"propertytype":  join(models.PropertyTypes),
	"listingtype":   join(models.ListingTypes),
	"listingstatus": join(models.ListingStatuses),
	"enquirystatus": join(models.EnquiryStatuses),
	"role":          join(models.Roles),
}

func join[T ~string](vs []T) string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = string(v)
	}
	return strings.Join(out, " ")
}

// RegisterValidators installs the taxonomy and phone validators on gin's
// validator and reports fields by their json name.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected binding validator %T", binding.Validator.Engine())
	}
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	for tag, fn := range map[string]func(string) bool{
		"propertytype":  models.IsPropertyType,
		"listingtype":   models.IsListingType,
		"listingstatus": models.IsListingStatus,
		"enquirystatus": models.IsEnquiryStatus,
		"role":          models.IsRole,
		"phone":         phonePattern.MatchString,
	} {
		if err := v.RegisterValidation(tag, stringValidator(fn)); err != nil {
			return fmt.Errorf("failed to register %s validator: %w", tag, err)
		}
	}
	return nil
}

func stringValidator(fn func(string) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return fn(fl.Field().String())
	}
}
