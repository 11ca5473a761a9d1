package validation

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/benvon/expense-console/internal/models"
	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
)

const (
	// MaxReceiptSize is the largest receipt file accepted for upload (5 MB)
	MaxReceiptSize = 5 * 1024 * 1024
	// DateLayout is the expense date format exchanged with the backend
	DateLayout = "2006-01-02"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate

	// ErrReceiptTooLarge is returned for receipt files over MaxReceiptSize
	ErrReceiptTooLarge = errors.New("receipt file must be smaller than 5MB")
	// ErrReceiptType is returned for receipt files that are not PNG, JPEG or PDF
	ErrReceiptType = errors.New("receipt must be a PNG, JPEG or PDF file")

	allowedReceiptTypes = []string{"image/png", "image/jpeg", "application/pdf"}
)

func init() {
	Validate = validator.New()

	if err := Validate.RegisterValidation("approval_status", validateApprovalStatus); err != nil {
		panic(fmt.Sprintf("failed to register approval_status validator: %v", err))
	}
	if err := Validate.RegisterValidation("iso_date", validateISODate); err != nil {
		panic(fmt.Sprintf("failed to register iso_date validator: %v", err))
	}
}

// validateApprovalStatus accepts only the decisions an approver can submit
func validateApprovalStatus(fl validator.FieldLevel) bool {
	switch models.ExpenseStatus(fl.Field().String()) {
	case models.ExpenseStatusApproved, models.ExpenseStatusRejected:
		return true
	default:
		return false
	}
}

func validateISODate(fl validator.FieldLevel) bool {
	_, err := time.Parse(DateLayout, fl.Field().String())
	return err == nil
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	text = strings.TrimSpace(text)

	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}

// FieldErrors converts a validator error into a field -> message map. Other
// errors yield nil.
func FieldErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = fieldMessage(fe)
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fe.Field())
	case "iso_date":
		return fmt.Sprintf("%s must be a date in YYYY-MM-DD format", fe.Field())
	case "approval_status":
		return fmt.Sprintf("%s must be APPROVED or REJECTED", fe.Field())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

// JoinFieldErrors renders field messages in a stable order
func JoinFieldErrors(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, fields[k])
	}
	return strings.Join(msgs, ", ")
}

// ValidateReceipt checks the size and detected content type of a receipt file.
// The type is sniffed from the bytes, not taken from the file name.
func ValidateReceipt(data []byte) (string, error) {
	if len(data) > MaxReceiptSize {
		return "", ErrReceiptTooLarge
	}
	mtype := mimetype.Detect(data)
	for _, allowed := range allowedReceiptTypes {
		if mtype.Is(allowed) {
			return allowed, nil
		}
	}
	return "", ErrReceiptType
}
