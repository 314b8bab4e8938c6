package cache

import (
	"fmt"
	"strings"
)

// Key joins a domain prefix and its parts: Key("tvl", "Ethereum") == "tvl:ethereum".
// Parts are lower-cased so lookups are case-insensitive.
func Key(domain string, parts ...interface{}) string {
	var b strings.Builder
	b.WriteString(domain)
	for _, p := range parts {
		b.WriteByte(':')
		b.WriteString(strings.ToLower(fmt.Sprint(p)))
	}
	return b.String()
}

// BuildPattern creates a Redis pattern for key matching.
func BuildPattern(prefix string) string {
	return prefix + "*"
}
