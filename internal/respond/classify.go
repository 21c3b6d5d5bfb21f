package respond

import "github.com/keithlinneman/linnemanlabs-api/internal/apierr"

type level int

const (
	levelInfo level = iota
	levelWarn
	levelError
)

// classify is the single status/category -> log severity mapping shared by
// both terminal paths, so the two cannot drift.
//
//	>= 500                   error (stack trace attached by the log layer)
//	404                      warn
//	401, 403                 warn + security alert
//	429                      warn + rate-limit alert
//	other 4xx, VALIDATION    info (expected traffic, not alarming)
//	other 4xx                warn
//	anything else            info
func classify(status int, category apierr.Category) (lvl level, alert string) {
	switch {
	case status >= 500:
		return levelError, ""
	case status == 404:
		return levelWarn, ""
	case status == 401 || status == 403:
		return levelWarn, "security"
	case status == 429:
		return levelWarn, "rate_limit"
	case status >= 400 && status < 500:
		if category == apierr.CategoryValidation {
			return levelInfo, ""
		}
		return levelWarn, ""
	}
	return levelInfo, ""
}
