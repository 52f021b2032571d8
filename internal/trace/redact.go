package trace

import (
	"regexp"
	"strings"

	"github.com/roach88/islproof/internal/ir"
)

// forbiddenKeys are dropped from recorded objects when a key contains any
// of them, case-insensitively.
var forbiddenKeys = []string{
	"password", "secret", "api_key", "apikey",
	"access_token", "accesstoken", "refresh_token", "refreshtoken",
	"private_key", "privatekey", "credit_card", "creditcard",
	"ssn", "social_security",
}

var ipv4 = regexp.MustCompile(`^\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}$`)

// RedactObject returns a copy of obj safe to persist in a trace. Secret
// keys are dropped; emails, IPv4 addresses and phone numbers are masked.
// Nested objects and lists are redacted recursively.
func RedactObject(obj ir.Object) ir.Object {
	if obj == nil {
		return nil
	}
	out := make(ir.Object, len(obj))
	for k, v := range obj {
		key := strings.ToLower(k)
		if isForbidden(key) {
			continue
		}
		s, isString := v.(ir.String)
		switch {
		case isString && strings.Contains(key, "email"):
			out[k] = ir.String(maskEmail(string(s)))
		case isString && (key == "ip" || strings.HasSuffix(key, "_ip") || strings.HasPrefix(key, "ip_")):
			out[k] = ir.String(maskIP(string(s)))
		case isString && strings.Contains(key, "phone"):
			out[k] = ir.String(maskPhone(string(s)))
		default:
			out[k] = RedactValue(v)
		}
	}
	return out
}

// RedactValue masks values that look like emails or IPv4 addresses and
// recurses into containers.
func RedactValue(v ir.Value) ir.Value {
	switch val := v.(type) {
	case ir.String:
		s := string(val)
		if strings.Contains(s, "@") && strings.Contains(s, ".") {
			return ir.String(maskEmail(s))
		}
		if ipv4.MatchString(s) {
			return ir.String(maskIP(s))
		}
		return val
	case ir.Object:
		return RedactObject(val)
	case ir.List:
		out := make(ir.List, len(val))
		for i, e := range val {
			out[i] = RedactValue(e)
		}
		return out
	}
	return v
}

func isForbidden(key string) bool {
	for _, f := range forbiddenKeys {
		if strings.Contains(key, f) {
			return true
		}
	}
	return false
}

func maskEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || strings.Contains(domain, "@") {
		return "***@***"
	}
	runes := []rune(local)
	if len(runes) <= 1 {
		return "*@" + domain
	}
	return string(runes[0]) + strings.Repeat("*", min(len(runes)-1, 3)) + "@" + domain
}

func maskIP(ip string) string {
	parts := strings.Split(ip, ".")
	if len(parts) == 4 {
		return parts[0] + "." + parts[1] + ".xxx.xxx"
	}
	return "xxx.xxx.xxx.xxx"
}

func maskPhone(phone string) string {
	runes := []rune(phone)
	if len(runes) > 4 {
		return strings.Repeat("*", len(runes)-4) + string(runes[len(runes)-4:])
	}
	return "****"
}
