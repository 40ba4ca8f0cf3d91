package httpparse

import (
	"strings"

	"github.com/ember-web/ember/http"
	"github.com/ember-web/ember/internal/hexconv"
)

// ParseTarget parses a request target. Origin-form (a path optionally
// followed by ?query) and the bare asterisk of server-wide OPTIONS are
// supported; absolute-form is only meaningful for proxies and is rejected.
// The returned target owns its memory.
func ParseTarget(str string) (http.Target, bool) {
	if str == "*" {
		return http.Target{Form: http.AsteriskForm, Path: "*"}, true
	}

	if !strings.HasPrefix(str, "/") {
		return http.Target{}, false
	}

	rawPath, query, _ := strings.Cut(str, "?")

	path, ok := decodePath(rawPath)
	if !ok || !validQuery(query) {
		return http.Target{}, false
	}

	return http.Target{
		Form:  http.OriginForm,
		Path:  path,
		Query: strings.Clone(query),
	}, true
}

// decodePath validates the path against the absolute-path character set and
// resolves percent escapes on the fly.
func decodePath(path string) (string, bool) {
	var b strings.Builder
	b.Grow(len(path))

	for i := 0; i < len(path); i++ {
		c := path[i]
		if isPathChar(c) {
			b.WriteByte(c)
			continue
		}

		if c == '%' && i+2 < len(path) && hexconv.Is(path[i+1]) && hexconv.Is(path[i+2]) {
			b.WriteByte(hexconv.Parse(path[i+1])<<4 | hexconv.Parse(path[i+2]))
			i += 2
			continue
		}

		return "", false
	}

	return b.String(), true
}

// validQuery checks the query against the absolute-path character set plus
// '?' and percent escapes. The query is kept raw, so nothing is decoded.
func validQuery(query string) bool {
	for i := 0; i < len(query); i++ {
		c := query[i]
		if isPathChar(c) || c == '?' {
			continue
		}

		if c == '%' && i+2 < len(query) && hexconv.Is(query[i+1]) && hexconv.Is(query[i+2]) {
			i += 2
			continue
		}

		return false
	}

	return true
}
