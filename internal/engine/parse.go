package engine

import (
	"math"
	"strconv"
	"strings"
)

// Both values use pt-BR formatting: "." groups thousands and "," marks decimals.
var (
	priceReplacer = strings.NewReplacer("R$", "", ".", "", ",", ".", " ", "", "\u00a0", "")
	areaReplacer  = strings.NewReplacer("m²", "", "m2", "", ".", "", ",", ".", " ", "", "\u00a0", "")
)

// ParsePrice converts a BRL amount such as "R$ 1.234,56" to 1234.56.
// Text that is not a number yields 0.
func ParsePrice(text string) float64 {
	return parseDecimal(priceReplacer.Replace(text))
}

// ParseArea converts an area such as "250,00 m²" or "1.000 m²" to 250 or 1000.
// Text that is not a number yields 0.
func ParseArea(text string) float64 {
	return parseDecimal(areaReplacer.Replace(text))
}

func parseDecimal(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// PricePerSqm returns price/area rounded to cents, or 0 when area is not positive.
func PricePerSqm(price, area float64) float64 {
	if area <= 0 {
		return 0
	}
	return math.Round(price/area*100) / 100
}

// SplitLocation splits a "City - ST" label. ok is false unless there are exactly two parts.
func SplitLocation(label string) (city, region string, ok bool) {
	parts := strings.Split(strings.TrimSpace(label), " - ")
	if len(parts) != 2 {
		return "", "", false
	}
	city, region = strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	if city == "" || region == "" {
		return "", "", false
	}
	return city, region, true
}
