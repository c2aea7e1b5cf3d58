package device

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// palette maps semantic color names to the controller's velocity color
// codes. Every base color has a dimmed variant.
var palette = map[string]uint8{
	"off":         0,
	"white":       3,
	"red":         5,
	"red_dim":     7,
	"orange":      9,
	"orange_dim":  11,
	"yellow":      13,
	"yellow_dim":  15,
	"lime":        17,
	"lime_dim":    19,
	"green":       21,
	"green_dim":   23,
	"spring":      29,
	"spring_dim":  27,
	"cyan":        37,
	"cyan_dim":    35,
	"sky":         41,
	"sky_dim":     39,
	"blue":        45,
	"blue_dim":    43,
	"purple":      49,
	"purple_dim":  47,
	"magenta":     53,
	"magenta_dim": 51,
	"pink":        57,
	"pink_dim":    55,
	"coral":       61,
	"coral_dim":   59,
	"amber":       65,
	"amber_dim":   63,
}

// colorHex holds the reference RGB value of each named color, used for
// nearest-color matching of hex inputs.
var colorHex = map[string]string{
	"off":         "#333333",
	"white":       "#FFFFFF",
	"red":         "#FF0000",
	"red_dim":     "#800000",
	"orange":      "#FF8000",
	"orange_dim":  "#804000",
	"yellow":      "#FFFF00",
	"yellow_dim":  "#808000",
	"lime":        "#80FF00",
	"lime_dim":    "#408000",
	"green":       "#00FF00",
	"green_dim":   "#008000",
	"spring":      "#00FF80",
	"spring_dim":  "#008040",
	"cyan":        "#00FFFF",
	"cyan_dim":    "#008080",
	"sky":         "#0080FF",
	"sky_dim":     "#004080",
	"blue":        "#0000FF",
	"blue_dim":    "#000080",
	"purple":      "#8000FF",
	"purple_dim":  "#400080",
	"magenta":     "#FF00FF",
	"magenta_dim": "#800080",
	"pink":        "#FF0080",
	"pink_dim":    "#800040",
	"coral":       "#FF4040",
	"coral_dim":   "#802020",
	"amber":       "#FFBF00",
	"amber_dim":   "#806000",
}

// IsValidColor reports whether name is a known palette name or a parsable
// hex color.
func IsValidColor(name string) bool {
	if strings.HasPrefix(name, "#") {
		_, _, _, err := parseHex(name)
		return err == nil
	}
	_, ok := palette[name]
	return ok
}

// ResolveColorName normalizes a color spec to a palette name: names pass
// through, hex colors map to the nearest palette entry by RGB distance.
func ResolveColorName(spec string) (string, error) {
	if strings.HasPrefix(spec, "#") {
		return closestPaletteColor(spec)
	}
	if _, ok := palette[spec]; !ok {
		return "", fmt.Errorf("unknown color %q", spec)
	}
	return spec, nil
}

// BrightVariant returns the non-dimmed sibling of a color name; the name
// itself if it has no dimmed suffix.
func BrightVariant(name string) string {
	return strings.TrimSuffix(name, "_dim")
}

// DimVariant returns the dimmed sibling of a color name when the palette
// has one, otherwise "off".
func DimVariant(name string) string {
	if name == "off" || strings.HasSuffix(name, "_dim") {
		return name
	}
	dim := name + "_dim"
	if _, ok := palette[dim]; ok {
		return dim
	}
	return "off"
}

func parseHex(hex string) (r, g, b int, err error) {
	h := strings.TrimPrefix(hex, "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return 0, 0, 0, fmt.Errorf("invalid hex color %q", hex)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid hex color %q", hex)
	}
	return int(v >> 16), int(v >> 8 & 0xFF), int(v & 0xFF), nil
}

func closestPaletteColor(hex string) (string, error) {
	tr, tg, tb, err := parseHex(hex)
	if err != nil {
		return "", err
	}
	best := "green"
	bestDist := math.MaxFloat64
	for name, ref := range colorHex {
		if name == "off" {
			continue
		}
		r, g, b, _ := parseHex(ref)
		d := math.Sqrt(float64((r-tr)*(r-tr) + (g-tg)*(g-tg) + (b-tb)*(b-tb)))
		if d < bestDist {
			bestDist = d
			best = name
		}
	}
	return best, nil
}
