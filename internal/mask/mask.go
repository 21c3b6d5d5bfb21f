// Package mask redacts sensitive fields from structured data before it is
// logged or serialized. Masking is irreversible; Partial and Email keep
// enough of the original value to correlate by inspection.
package mask

import (
	"strings"
)

// Redacted replaces the value of every matched sensitive key.
const Redacted = "***MASKED***"

// defaultSensitive covers credentials, tokens, card data, and identifiers.
// Matching is case-insensitive on map keys only, never on values.
var defaultSensitive = []string{
	"password",
	"passwd",
	"secret",
	"token",
	"accesstoken",
	"refreshtoken",
	"authorization",
	"apikey",
	"api_key",
	"privatekey",
	"private_key",
	"clientsecret",
	"cardnumber",
	"card_number",
	"cvv",
	"cvc",
	"pin",
	"ssn",
	"creditcard",
	"sessionid",
	"session_id",
	"cookie",
}

// Mask returns a deep copy of v with every map entry whose key matches the
// default sensitive set replaced by Redacted. Slices and nested maps are
// walked recursively; scalars and nil pass through unchanged. The input is
// never mutated. Cyclic structures are not detected and will not terminate.
func Mask(v any) any {
	return maskValue(v, sensitiveSet(nil))
}

// MaskWith behaves like Mask with extra field names added to the sensitive
// set for this call only.
func MaskWith(v any, extra ...string) any {
	return maskValue(v, sensitiveSet(extra))
}

func sensitiveSet(extra []string) map[string]struct{} {
	set := make(map[string]struct{}, len(defaultSensitive)+len(extra))
	for _, k := range defaultSensitive {
		set[k] = struct{}{}
	}
	for _, k := range extra {
		set[strings.ToLower(k)] = struct{}{}
	}
	return set
}

func maskValue(v any, sensitive map[string]struct{}) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if _, hit := sensitive[strings.ToLower(k)]; hit {
				out[k] = Redacted
				continue
			}
			out[k] = maskValue(val, sensitive)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = maskValue(val, sensitive)
		}
		return out
	default:
		// scalars, nil, and unknown types pass through untouched
		return v
	}
}

// Partial keeps keepPrefix leading and keepSuffix trailing characters and
// redacts the middle with at most 8 asterisks. Strings too short to reveal
// anything safely are fully redacted.
func Partial(s string, keepPrefix, keepSuffix int) string {
	if keepPrefix < 0 {
		keepPrefix = 0
	}
	if keepSuffix < 0 {
		keepSuffix = 0
	}
	r := []rune(s)
	// need at least one hidden character between the revealed parts
	if len(r) <= keepPrefix+keepSuffix {
		return Redacted
	}
	hidden := len(r) - keepPrefix - keepSuffix
	if hidden > 8 {
		hidden = 8
	}
	return string(r[:keepPrefix]) + strings.Repeat("*", hidden) + string(r[len(r)-keepSuffix:])
}

// Email masks an address as first+last char of the local part and first char
// of the domain label plus its top-level suffix: jdoe@example.com -> j**e@e***.com
func Email(s string) string {
	at := strings.LastIndex(s, "@")
	if at <= 0 || at == len(s)-1 {
		return Redacted
	}
	local, domain := s[:at], s[at+1:]

	var maskedLocal string
	lr := []rune(local)
	if len(lr) <= 2 {
		maskedLocal = string(lr[0]) + "*"
	} else {
		maskedLocal = string(lr[0]) + strings.Repeat("*", len(lr)-2) + string(lr[len(lr)-1])
	}

	dot := strings.LastIndex(domain, ".")
	if dot <= 0 {
		return maskedLocal + "@" + Redacted
	}
	label, tld := domain[:dot], domain[dot:]
	dr := []rune(label)
	maskedDomain := string(dr[0])
	if len(dr) > 1 {
		maskedDomain += strings.Repeat("*", len(dr)-1)
	}
	return maskedLocal + "@" + maskedDomain + tld
}
