// ABOUTME: Client-side argument validation for profile, review and payment calls
// ABOUTME: Rejects bad input before a request reaches the backend

package client

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	emailPattern    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	// Thai numbers: +66 or 0 followed by nine digits
	phonePattern = regexp.MustCompile(`^(\+66|0)\d{9}$`)
	whitespace   = regexp.MustCompile(`\s`)
)

const (
	minUsernameLen = 3
	maxUsernameLen = 30
	maxBioLen      = 500
	minReviewLen   = 10
	maxReviewLen   = 2000
	minRating      = 1
	maxRating      = 5
	maxProgressPct = 100
)

// AllCategories is the category name the catalog uses for "no filter"
const AllCategories = "ทั้งหมด"

// ValidateEmail reports whether email looks like an address
func ValidateEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// ValidateUsername checks length and the allowed character set
func ValidateUsername(username string) error {
	n := utf8.RuneCountInString(username)
	if n < minUsernameLen || n > maxUsernameLen {
		return invalid("username", "Username must be %d-%d characters", minUsernameLen, maxUsernameLen)
	}
	if !usernamePattern.MatchString(username) {
		return invalid("username", "Username can only contain letters, numbers, and underscores")
	}
	return nil
}

// ValidateBio enforces the bio length limit
func ValidateBio(bio string) error {
	if utf8.RuneCountInString(bio) > maxBioLen {
		return invalid("bio", "Bio must not exceed %d characters", maxBioLen)
	}
	return nil
}

// ValidatePhone accepts Thai mobile numbers, ignoring whitespace
func ValidatePhone(phone string) bool {
	return phonePattern.MatchString(whitespace.ReplaceAllString(phone, ""))
}

func validateRating(rating int) error {
	if rating < minRating || rating > maxRating {
		return invalid("rating", "Rating must be between %d and %d", minRating, maxRating)
	}
	return nil
}

func validateReviewText(text string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(text))
	if n < minReviewLen || n > maxReviewLen {
		return invalid("review_text", "Review must be %d-%d characters", minReviewLen, maxReviewLen)
	}
	return nil
}

func validateID(field, id string) error {
	if strings.TrimSpace(id) == "" {
		return invalid(field, "%s is required", field)
	}
	return nil
}

// isAllCategories reports whether category means "no category filter"
func isAllCategories(category string) bool {
	return category == "" || category == AllCategories
}
