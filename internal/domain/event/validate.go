package event

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Field error codes produced by the draft validator.
const (
	CodeRequiredField = "required_field"
	CodeInvalidDate   = "invalid_date"
	CodeInvalidNumber = "invalid_number"
)

type FieldError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// FieldErrors maps form field name -> error, so the client can render all
// failures at once.
type FieldErrors map[string]FieldError

// Normalized is the cleaned-up payload produced when a draft validates:
// strings trimmed, capacity/price coerced, status defaulted.
type Normalized struct {
	Title       string
	Description string
	Date        time.Time
	Location    string
	Capacity    int
	Price       decimal.Decimal
	Status      Status
}

const dateLayout = "2006-01-02"

// ValidateDraft checks every field independently and collects all errors;
// it never short-circuits. A nil FieldErrors means the draft is valid and
// the Normalized payload is usable.
func ValidateDraft(d Draft, now time.Time) (Normalized, FieldErrors) {
	errs := FieldErrors{}
	var n Normalized

	if fe := validateTitle(d.Title, &n); fe != nil {
		errs["title"] = *fe
	}
	if fe := validateDate(d.Date, now, &n); fe != nil {
		errs["date"] = *fe
	}
	if fe := validateLocation(d.Location, &n); fe != nil {
		errs["location"] = *fe
	}
	if fe := validateCapacity(d.Capacity, &n); fe != nil {
		errs["capacity"] = *fe
	}
	if fe := validatePrice(d.Price, &n); fe != nil {
		errs["price"] = *fe
	}

	n.Description = strings.TrimSpace(d.Description)

	n.Status = Status(d.Status)
	if n.Status == "" {
		n.Status = StatusUpcoming
	}

	if len(errs) == 0 {
		return n, nil
	}
	return Normalized{}, errs
}

// ValidateField re-checks a single field after the user edits it, so the
// caller can clear that field's error without dropping the others. Returns
// nil when the field is now valid or unknown.
func ValidateField(d Draft, field string, now time.Time) *FieldError {
	var n Normalized

	switch field {
	case "title":
		return validateTitle(d.Title, &n)
	case "date":
		return validateDate(d.Date, now, &n)
	case "location":
		return validateLocation(d.Location, &n)
	case "capacity":
		return validateCapacity(d.Capacity, &n)
	case "price":
		return validatePrice(d.Price, &n)
	default:
		return nil
	}
}

func validateTitle(raw string, n *Normalized) *FieldError {
	v := strings.TrimSpace(raw)
	if v == "" {
		return &FieldError{Code: CodeRequiredField, Message: "Title is required"}
	}
	n.Title = v
	return nil
}

func validateDate(raw string, now time.Time, n *Normalized) *FieldError {
	v := strings.TrimSpace(raw)
	if v == "" {
		return &FieldError{Code: CodeRequiredField, Message: "Date is required"}
	}

	parsed, err := time.Parse(dateLayout, v)
	if err != nil {
		// forms send YYYY-MM-DD; API callers may send full timestamps
		parsed, err = time.Parse(time.RFC3339, v)
		if err != nil {
			return &FieldError{Code: CodeInvalidDate, Message: "Date must be a valid calendar date"}
		}
	}

	// strictly future: the chosen day must be after today, today itself fails
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	chosen := time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, now.Location())

	if !chosen.After(today) {
		return &FieldError{Code: CodeInvalidDate, Message: "Date must be in the future"}
	}

	n.Date = chosen
	return nil
}

func validateLocation(raw string, n *Normalized) *FieldError {
	v := strings.TrimSpace(raw)
	if v == "" {
		return &FieldError{Code: CodeRequiredField, Message: "Location is required"}
	}
	n.Location = v
	return nil
}

func validateCapacity(raw string, n *Normalized) *FieldError {
	v := strings.TrimSpace(raw)
	if v == "" {
		return &FieldError{Code: CodeRequiredField, Message: "Capacity is required"}
	}

	capacity, err := strconv.Atoi(v)
	if err != nil || capacity <= 0 {
		return &FieldError{Code: CodeInvalidNumber, Message: "Capacity must be greater than 0"}
	}

	n.Capacity = capacity
	return nil
}

func validatePrice(raw string, n *Normalized) *FieldError {
	v := strings.TrimSpace(raw)
	if v == "" {
		n.Price = decimal.Zero
		return nil
	}

	price, err := decimal.NewFromString(v)
	if err != nil || price.IsNegative() {
		return &FieldError{Code: CodeInvalidNumber, Message: "Price must be a non-negative number"}
	}

	n.Price = price
	return nil
}
