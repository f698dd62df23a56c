package cache

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"path"
	"strings"
)

const keySep = ":"

// Key joins parts into a cache key, e.g. Key("features", "sales", 12) is
// "features:sales:12".
func Key(parts ...interface{}) string {
	var b strings.Builder
	for i, p := range parts {
		if i > 0 {
			b.WriteString(keySep)
		}
		fmt.Fprint(&b, p)
	}
	return b.String()
}

// Digest is the hex MD5 of b, for keys that follow content.
func Digest(b []byte) string {
	sum := md5.Sum(b)
	return hex.EncodeToString(sum[:])
}

// PrefixPattern matches every key below Key(parts...). Glob metacharacters
// in parts are escaped, so a name such as "a*" only matches itself.
func PrefixPattern(parts ...interface{}) string {
	return escapeGlob(Key(parts...)) + keySep + "*"
}

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func escapeGlob(s string) string {
	return globEscaper.Replace(s)
}

// matchPattern reports whether key matches a Redis-style glob.
func matchPattern(pattern, key string) bool {
	ok, err := path.Match(pattern, key)
	return err == nil && ok
}
