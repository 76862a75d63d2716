// Package validation provides input validation for the storefront API.
package validation

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
)

// MaxRequestSize is the maximum request body size (1MB)
const MaxRequestSize = 1 << 20

// MaxReferenceLength bounds a transaction reference. Backend identifiers are
// Mongo object ids or uuid-shaped strings; anything past this is garbage.
const MaxReferenceLength = 64

var (
	// referenceRegex validates transaction references and product ids.
	referenceRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
	// phoneRegex validates Nepali mobile numbers.
	phoneRegex = regexp.MustCompile(`^9[678]\d{8}$`)
)

// RequestSizeMiddleware limits request body size.
func RequestSizeMiddleware(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}

// IsValidReference checks the shape of a transaction reference or product id.
func IsValidReference(ref string) bool {
	return referenceRegex.MatchString(ref)
}

// IsValidPhone checks a Nepali mobile number.
func IsValidPhone(phone string) bool {
	return phoneRegex.MatchString(phone)
}

// SanitizeString trims, bounds, and strips null bytes from free-form input.
func SanitizeString(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	if len(s) > maxLen {
		s = s[:maxLen]
	}
	return strings.ReplaceAll(s, "\x00", "")
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	return e[0].Field + ": " + e[0].Message
}

// Validate runs validators and collects their errors.
func Validate(validators ...func() *ValidationError) ValidationErrors {
	var errs ValidationErrors
	for _, v := range validators {
		if err := v(); err != nil {
			errs = append(errs, *err)
		}
	}
	return errs
}

// Required checks that a field is non-empty.
func Required(field, value string) func() *ValidationError {
	return func() *ValidationError {
		if strings.TrimSpace(value) == "" {
			return &ValidationError{Field: field, Message: "is required"}
		}
		return nil
	}
}

// ValidReference checks a field against the reference shape. Empty passes;
// pair with Required when the field is mandatory.
func ValidReference(field, value string) func() *ValidationError {
	return func() *ValidationError {
		if value == "" {
			return nil
		}
		if !IsValidReference(value) {
			return &ValidationError{Field: field, Message: "must be 1-64 alphanumeric, dash, or underscore characters"}
		}
		return nil
	}
}

// ValidPhone checks a field holds a Nepali mobile number.
func ValidPhone(field, value string) func() *ValidationError {
	return func() *ValidationError {
		if value == "" {
			return nil
		}
		if !IsValidPhone(value) {
			return &ValidationError{Field: field, Message: "must be a valid mobile number"}
		}
		return nil
	}
}

// MaxLength checks if a field exceeds max length.
func MaxLength(field, value string, max int) func() *ValidationError {
	return func() *ValidationError {
		if len(value) > max {
			return &ValidationError{Field: field, Message: "exceeds maximum length"}
		}
		return nil
	}
}

// ReferenceParamMiddleware validates reference-shaped URL parameters on
// routes that carry them, rejecting malformed ids before they reach the
// backend.
func ReferenceParamMiddleware(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		v := c.Param(param)
		if v != "" && !IsValidReference(v) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_reference",
				"message": param + " must be 1-64 alphanumeric, dash, or underscore characters",
			})
			return
		}
		c.Next()
	}
}
