package lexer

import (
	"strconv"

	"github.com/rcliao/passage/internal/value"
)

var namedColours = map[string]string{
	"red":         "e61919",
	"orange":      "e68019",
	"yellow":      "e5e619",
	"lime":        "80e619",
	"green":       "19e619",
	"aqua":        "19e5e6",
	"cyan":        "19e5e6",
	"blue":        "197fe6",
	"navy":        "1919e6",
	"purple":      "7f19e6",
	"magenta":     "e619e5",
	"fuchsia":     "e619e5",
	"white":       "ffffff",
	"black":       "000000",
	"grey":        "888888",
	"gray":        "888888",
	"transparent": "transparent",
}

// ParseColour decodes a colour token's Name into a value.
func ParseColour(name string) (value.Colour, bool) {
	if name == "transparent" {
		return value.Colour{}, true
	}
	return parseHex(name)
}

func parseHex(hex string) (value.Colour, bool) {
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return value.Colour{}, false
	}
	n, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return value.Colour{}, false
	}
	return value.Colour{R: uint8(n >> 16), G: uint8(n >> 8), B: uint8(n), A: 1}, true
}
