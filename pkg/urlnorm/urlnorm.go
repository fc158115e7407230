// Package urlnorm repairs malformed URL strings. It is shared by the write
// path (shortening) and the read path (resolution), so records persisted
// before a normalization fix still come out clean.
package urlnorm

import "strings"

// The fixed set of HTML entity escapes that upstream sanitization is known to
// introduce. Decoding is limited to exactly this set.
var entityReplacer = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#x27;", "'",
	"&#x2F;", "/",
)

var duplicatedProtocolPrefixes = []string{
	"https://https://",
	"http://https://",
	"https://http://",
	"http://http://",
}

// Normalize cleans a URL string: it decodes the fixed entity set back to
// literal characters and strips duplicated protocol prefixes, leaving a
// single correct one. It never adds a missing protocol and never fails;
// Normalize(Normalize(s)) == Normalize(s).
func Normalize(raw string) string {
	// Both repairs run to a fixpoint so multiply-escaped entities and
	// stacked protocols collapse in one call.
	s := raw
	for {
		decoded := entityReplacer.Replace(s)
		if decoded == s {
			break
		}
		s = decoded
	}

	for hasDuplicatedProtocol(s) {
		s = stripLeadingProtocol(s)
	}

	return s
}

func hasDuplicatedProtocol(s string) bool {
	for _, prefix := range duplicatedProtocolPrefixes {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}

func stripLeadingProtocol(s string) string {
	if rest, ok := strings.CutPrefix(s, "https://"); ok {
		return rest
	}
	if rest, ok := strings.CutPrefix(s, "http://"); ok {
		return rest
	}
	return s
}
