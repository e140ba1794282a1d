// internal/pages/userdata.go
package pages

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is safe for concurrent use and caches struct metadata.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// checkoutInput is the validated shape of the checkout form. Pointers let a
// missing field be told apart from an empty one.
type checkoutInput struct {
	FirstName  *string `json:"first_name" validate:"required,min=1"`
	LastName   *string `json:"last_name" validate:"required,min=1"`
	PostalCode *string `json:"postal_code" validate:"required,min=1"`
}

// CheckoutUserData is the customer information typed into the first checkout
// step. A value can only be obtained through validation, and it cannot be
// modified afterwards.
type CheckoutUserData struct {
	firstName  string
	lastName   string
	postalCode string
}

// NewCheckoutUserData validates the three fields. Every empty field is reported.
func NewCheckoutUserData(firstName, lastName, postalCode string) (CheckoutUserData, error) {
	return build(checkoutInput{FirstName: &firstName, LastName: &lastName, PostalCode: &postalCode})
}

// ParseCheckoutUserData builds the data from a keyed record such as a JSON
// object or a CSV row, using the keys first_name, last_name and postal_code.
// Absent and empty fields are all reported.
func ParseCheckoutUserData(fields map[string]string) (CheckoutUserData, error) {
	var in checkoutInput
	if v, ok := fields["first_name"]; ok {
		in.FirstName = &v
	}
	if v, ok := fields["last_name"]; ok {
		in.LastName = &v
	}
	if v, ok := fields["postal_code"]; ok {
		in.PostalCode = &v
	}
	return build(in)
}

func build(in checkoutInput) (CheckoutUserData, error) {
	if err := validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return CheckoutUserData{}, fmt.Errorf("validating checkout data: %w", err)
		}
		out := &ValidationError{Model: "CheckoutUserData"}
		for _, fe := range verrs {
			out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Rule: fe.Tag()})
		}
		return CheckoutUserData{}, out
	}
	return CheckoutUserData{firstName: *in.FirstName, lastName: *in.LastName, postalCode: *in.PostalCode}, nil
}

func (d CheckoutUserData) FirstName() string  { return d.firstName }
func (d CheckoutUserData) LastName() string   { return d.lastName }
func (d CheckoutUserData) PostalCode() string { return d.postalCode }

// Validate re-checks the value. The zero CheckoutUserData is invalid.
func (d CheckoutUserData) Validate() error {
	_, err := NewCheckoutUserData(d.firstName, d.lastName, d.postalCode)
	return err
}

func (d CheckoutUserData) String() string {
	return fmt.Sprintf("first_name=%q last_name=%q postal_code=%q", d.firstName, d.lastName, d.postalCode)
}
