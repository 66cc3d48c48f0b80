package db

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	kvPairRegex   = regexp.MustCompile(`(?i)\b(host|user|password|dbname|port|sslmode)=`)
	kvPasswordRgx = regexp.MustCompile(`(?i)(password=)(\S+)`)
)

// NormalizeDSN cleans a postgres DSN given either as a URL or as a key=value
// list. Quotes and extra whitespace are dropped, and a key=value list without
// sslmode gets sslmode=disable.
func NormalizeDSN(raw string) string {
	s := strings.Trim(strings.TrimSpace(raw), "\"'")
	if s == "" || isURL(s) || !kvPairRegex.MatchString(s) {
		return s
	}
	cleaned := strings.Join(strings.Fields(s), " ")
	if !strings.Contains(strings.ToLower(cleaned), "sslmode=") {
		cleaned += " sslmode=disable"
	}
	return cleaned
}

// ToURLDSN rewrites a key=value DSN in the URL form golang-migrate expects.
// Input it cannot convert is returned unchanged.
func ToURLDSN(dsn string) string {
	if dsn == "" || isURL(dsn) {
		return dsn
	}
	kv := map[string]string{}
	for _, part := range strings.Fields(dsn) {
		if k, v, ok := strings.Cut(part, "="); ok {
			kv[strings.ToLower(k)] = v
		}
	}
	host, user, name := kv["host"], kv["user"], kv["dbname"]
	if host == "" || user == "" || name == "" {
		return dsn
	}
	u := &url.URL{Scheme: "postgres", Host: host, Path: "/" + name, User: url.User(user)}
	if port := kv["port"]; port != "" {
		u.Host = host + ":" + port
	}
	if pass := kv["password"]; pass != "" {
		u.User = url.UserPassword(user, pass)
	}
	if mode, ok := kv["sslmode"]; ok {
		u.RawQuery = url.Values{"sslmode": {mode}}.Encode()
	}
	return u.String()
}

// MaskDSN hides the password so the DSN can be logged.
func MaskDSN(dsn string) string {
	if isURL(dsn) {
		if u, err := url.Parse(dsn); err == nil {
			return u.Redacted()
		}
		return "postgres://***"
	}
	return kvPasswordRgx.ReplaceAllString(dsn, "${1}***")
}

func isURL(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://")
}
