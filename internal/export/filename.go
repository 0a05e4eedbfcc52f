package export

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/kozaktomas/photo-panel/internal/constants"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const defaultPrefix = "panel"

// safePrefix removes diacritics (e.g. "Sião" -> "Siao") and keeps a
// filesystem friendly ASCII subset, spaces become underscores.
func safePrefix(prefix string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, _ := transform.String(t, prefix)

	var b strings.Builder
	for _, r := range strings.TrimSpace(plain) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return defaultPrefix
	}
	return b.String()
}

// FileName returns "<prefix>_<unix-millis>.pdf".
func FileName(prefix string, at time.Time) string {
	return fmt.Sprintf("%s_%d%s", safePrefix(prefix), at.UnixMilli(), constants.OutputExtension)
}
