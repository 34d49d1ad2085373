package courier

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// bdMobileRe matches a normalized Bangladeshi mobile number: leading 01,
// operator digit 3-9, eight subscriber digits.
var bdMobileRe = regexp.MustCompile(`^01[3-9][0-9]{8}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("bd_phone", func(fl validator.FieldLevel) bool {
		_, err := NormalizePhone(fl.Field().String())
		return err == nil
	})
	return v
}

// NormalizePhone strips separators and the +880/880 country prefix and
// validates the result against the national mobile format.
func NormalizePhone(phone string) (string, error) {
	s := strings.TrimSpace(phone)
	for _, sep := range []string{" ", "-", "(", ")"} {
		s = strings.ReplaceAll(s, sep, "")
	}
	switch {
	case strings.HasPrefix(s, "+880"):
		s = "0" + s[4:]
	case strings.HasPrefix(s, "880"):
		s = "0" + s[3:]
	}
	if !bdMobileRe.MatchString(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPhone, phone)
	}
	return s, nil
}

// ValidateOrder checks an order payload before any upstream call. The
// returned error is a validation-class courier Error naming the first
// offending field.
func ValidateOrder(order *OrderDescriptor) error {
	if order == nil {
		return NewError("", CodeValidation, "order is required")
	}
	if err := validate.Struct(order); err != nil {
		msg := err.Error()
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			msg = fmt.Sprintf("field %s failed %s validation", verrs[0].Field(), verrs[0].Tag())
		}
		return NewError("", CodeValidation, msg).WithCause(err)
	}
	return nil
}

// statusHints maps lowercase substrings of provider-native status strings
// to normalized classes. Checked in order; first hit wins.
var statusHints = []struct {
	hint  string
	class StatusClass
}{
	{"partial", StatusReturned},
	{"return", StatusReturned},
	{"cancel", StatusCancelled},
	{"deliver", StatusDelivered},
	{"transit", StatusInTransit},
	{"picked", StatusInTransit},
	{"pickup", StatusInTransit},
	{"shipment", StatusInTransit},
	{"hub", StatusInTransit},
	{"pending", StatusPending},
	{"review", StatusPending},
	{"hold", StatusPending},
}

// ClassifyStatus buckets a provider-native tracking status string.
// Unrecognized vocabularies classify as StatusUnknown; the raw string is
// always kept next to the class, so precision loss here is cosmetic.
func ClassifyStatus(status string) StatusClass {
	low := strings.ToLower(status)
	if low == "" {
		return StatusUnknown
	}
	for _, h := range statusHints {
		if strings.Contains(low, h.hint) {
			return h.class
		}
	}
	return StatusUnknown
}
