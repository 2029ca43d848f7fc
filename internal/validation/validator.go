package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/booking-admin-bulk-api/internal/models"
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	// Permissive phone shape: optional leading +, digits with common
	// separators. Digit count is checked separately.
	phoneRegex = regexp.MustCompile(`^\+?[0-9][0-9\-\s().]*$`)
)

// Result is the verdict for one record
type Result struct {
	IsValid bool     `json:"is_valid"`
	Errors  []string `json:"errors,omitempty"`
}

// Validator holds the per-entity rule sets. Validation never mutates the
// record under inspection.
type Validator struct{}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{}
}

// Validate runs the rule set for the given entity type. Entity types
// without dedicated rules pass by default.
func (v *Validator) Validate(entityType models.EntityType, record models.RawRecord) Result {
	switch entityType {
	case models.EntityCustomers:
		return v.ValidateCustomer(record)
	case models.EntityServices:
		return v.ValidateService(record)
	case models.EntityEquipment:
		return v.ValidateEquipment(record)
	case models.EntityBookings:
		return v.ValidateBooking(record)
	case models.EntityUsers:
		return v.ValidateUser(record)
	}
	return Result{IsValid: true}
}

// ValidateCustomer checks email shape, required name and an optional
// permissive phone number.
func (v *Validator) ValidateCustomer(record models.RawRecord) Result {
	var errs []string

	email := stringField(record, "email")
	if email == "" {
		errs = append(errs, "email is required")
	} else if !emailRegex.MatchString(email) {
		errs = append(errs, fmt.Sprintf("invalid email format: %s", email))
	}

	if stringField(record, "name") == "" {
		errs = append(errs, "name is required")
	}

	if phone := stringField(record, "phone"); phone != "" {
		if !phoneRegex.MatchString(phone) || digitCount(phone) < 10 {
			errs = append(errs, fmt.Sprintf("invalid phone number: %s", phone))
		}
	}

	return result(errs)
}

// ValidateService checks required name, numeric price and integer duration
func (v *Validator) ValidateService(record models.RawRecord) Result {
	var errs []string

	if stringField(record, "name") == "" {
		errs = append(errs, "name is required")
	}

	if price, ok := record["price"]; !ok || price == nil || stringField(record, "price") == "" {
		errs = append(errs, "price is required")
	} else if _, ok := numericValue(price); !ok {
		errs = append(errs, fmt.Sprintf("price must be numeric: %v", price))
	}

	if duration, ok := record["duration"]; !ok || duration == nil || stringField(record, "duration") == "" {
		errs = append(errs, "duration is required")
	} else if !isInteger(duration) {
		errs = append(errs, fmt.Sprintf("duration must be an integer: %v", duration))
	}

	return result(errs)
}

// ValidateEquipment checks required name and type, and numeric quantity when
// present.
func (v *Validator) ValidateEquipment(record models.RawRecord) Result {
	var errs []string

	if stringField(record, "name") == "" {
		errs = append(errs, "name is required")
	}
	if stringField(record, "type") == "" {
		errs = append(errs, "type is required")
	}

	if quantity, ok := record["quantity"]; ok && quantity != nil && stringField(record, "quantity") != "" {
		if _, ok := numericValue(quantity); !ok {
			errs = append(errs, fmt.Sprintf("quantity must be numeric: %v", quantity))
		}
	}

	return result(errs)
}

// ValidateBooking checks the customer and service references plus the start
// time format.
func (v *Validator) ValidateBooking(record models.RawRecord) Result {
	var errs []string

	if stringField(record, "customer_id") == "" {
		errs = append(errs, "customer_id is required")
	}
	if stringField(record, "service_id") == "" {
		errs = append(errs, "service_id is required")
	}

	startTime := stringField(record, "start_time")
	if startTime == "" {
		errs = append(errs, "start_time is required")
	} else if _, err := time.Parse(time.RFC3339, startTime); err != nil {
		errs = append(errs, fmt.Sprintf("start_time must be RFC3339: %s", startTime))
	}

	return result(errs)
}

// ValidateUser checks email shape and required name and role
func (v *Validator) ValidateUser(record models.RawRecord) Result {
	var errs []string

	email := stringField(record, "email")
	if email == "" {
		errs = append(errs, "email is required")
	} else if !emailRegex.MatchString(email) {
		errs = append(errs, fmt.Sprintf("invalid email format: %s", email))
	}

	if stringField(record, "name") == "" {
		errs = append(errs, "name is required")
	}
	if stringField(record, "role") == "" {
		errs = append(errs, "role is required")
	}

	return result(errs)
}

func result(errs []string) Result {
	return Result{IsValid: len(errs) == 0, Errors: errs}
}

// stringField renders a field as a trimmed string; absent fields and nil
// values come back empty.
func stringField(record models.RawRecord, key string) string {
	value, ok := record[key]
	if !ok || value == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprintf("%v", value))
}

func digitCount(s string) int {
	count := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			count++
		}
	}
	return count
}

func numericValue(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

func isInteger(v interface{}) bool {
	f, ok := numericValue(v)
	if !ok {
		return false
	}
	return f == float64(int64(f))
}
