package canvas

import (
	"fmt"
	"strings"
)

// ColorClear is the sentinel meaning "erase this pixel".
const ColorClear = "clear"

func isHex(s string) bool {
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// NormalizeColor canonicalizes a color value to uppercase "#RRGGBB" form.
// A 3-digit code expands each digit ("0AF" becomes "#00AAFF"); a leading
// "#" is optional; the literal "clear" passes through unchanged. Any other
// value is a validation failure. Idempotent on already-normalized input.
func NormalizeColor(color string) (string, error) {
	if color == ColorClear {
		return ColorClear, nil
	}

	hex := strings.TrimPrefix(color, "#")
	switch {
	case len(hex) == 3 && isHex(hex):
		var b strings.Builder
		b.WriteByte('#')
		for i := 0; i < 3; i++ {
			b.WriteByte(hex[i])
			b.WriteByte(hex[i])
		}
		return strings.ToUpper(b.String()), nil
	case len(hex) == 6 && isHex(hex):
		return "#" + strings.ToUpper(hex), nil
	default:
		return "", fmt.Errorf("%w: color must be a 3 or 6 character hex code or %q", ErrInvalidInput, ColorClear)
	}
}
