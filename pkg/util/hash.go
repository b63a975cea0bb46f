package util

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

// HashQuery builds a stable key from query parts, used for cache keys.
// Parts are trimmed and lowercased so "Surf " and "surf" share an entry.
func HashQuery(parts ...string) string {
	builder := strings.Builder{}
	for i, p := range parts {
		if i > 0 {
			builder.WriteString("|")
		}
		builder.WriteString(strings.TrimSpace(strings.ToLower(p)))
	}
	sum := md5.Sum([]byte(builder.String()))
	return hex.EncodeToString(sum[:])
}
