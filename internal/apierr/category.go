package apierr

import "strings"

// Category is the closed classification attached to every error envelope and
// log entry. It is derived from status and message text, never persisted.
type Category string

const (
	CategoryValidation      Category = "VALIDATION"
	CategoryAuthentication  Category = "AUTHENTICATION"
	CategoryAuthorization   Category = "AUTHORIZATION"
	CategoryNotFound        Category = "NOT_FOUND"
	CategoryDatabase        Category = "DATABASE"
	CategoryExternalService Category = "EXTERNAL_SERVICE"
	CategoryRateLimit       Category = "RATE_LIMIT"
	CategoryBusinessLogic   Category = "BUSINESS_LOGIC"
	CategoryInternal        Category = "INTERNAL"
	CategoryUnknown         Category = "UNKNOWN"
)

// exact status -> category mapping, checked before any message inspection
var statusCategories = map[int]Category{
	400: CategoryValidation,
	401: CategoryAuthentication,
	403: CategoryAuthorization,
	404: CategoryNotFound,
	422: CategoryBusinessLogic,
	429: CategoryRateLimit,
}

var databaseHints = []string{"database", "postgres", "sql", "connection"}
var externalHints = []string{"timeout", "external service", "third-party", "upstream"}

// Categorize maps a status code and optional message to exactly one
// Category. Every status maps somewhere; UNKNOWN only covers codes outside
// both the 4xx and 5xx ranges.
func Categorize(status int, message string) Category {
	if c, ok := statusCategories[status]; ok {
		return c
	}

	if status >= 500 && message != "" {
		lower := strings.ToLower(message)
		for _, hint := range databaseHints {
			if strings.Contains(lower, hint) {
				return CategoryDatabase
			}
		}
		for _, hint := range externalHints {
			if strings.Contains(lower, hint) {
				return CategoryExternalService
			}
		}
	}

	switch {
	case status >= 400 && status < 500:
		return CategoryValidation
	case status >= 500 && status < 600:
		return CategoryInternal
	}
	return CategoryUnknown
}
