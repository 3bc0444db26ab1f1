package store

import (
	"strings"

	"github.com/jrsteele09/trigpoint-web/backend"
)

// BikeFilter narrows a bike list. Brand, Model and Text are case-insensitive
// substring matches (Model matches the bike's name, Text matches
// "brand name year"); Year must equal the model year exactly. Empty fields
// match everything and all fields must match.
type BikeFilter struct {
	Brand string
	Model string
	Year  string
	Text  string
}

func (f BikeFilter) IsZero() bool {
	return f == BikeFilter{}
}

func (f BikeFilter) Match(b backend.Bike) bool {
	brand := strings.ToLower(b.Brand)
	name := strings.ToLower(b.Name)
	year := b.YearString()

	if bf := strings.ToLower(f.Brand); bf != "" && !strings.Contains(brand, bf) {
		return false
	}
	if mf := strings.ToLower(f.Model); mf != "" && !strings.Contains(name, mf) {
		return false
	}
	if yf := strings.TrimSpace(f.Year); yf != "" && yf != year {
		return false
	}
	if tf := strings.ToLower(f.Text); tf != "" && !strings.Contains(brand+" "+name+" "+year, tf) {
		return false
	}
	return true
}

// FilterBikes returns the bikes matching f, keeping their order.
func FilterBikes(bikes []backend.Bike, f BikeFilter) []backend.Bike {
	out := make([]backend.Bike, 0, len(bikes))
	for _, b := range bikes {
		if f.Match(b) {
			out = append(out, b)
		}
	}
	return out
}
