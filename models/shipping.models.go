package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ShippingZone is a delivery region with a flat rate
type ShippingZone struct {
	Name     string          `json:"zona"`
	Price    decimal.Decimal `json:"-"`
	Delivery string          `json:"tiempo"`
}

// PriceDisplay formats the flat rate without cents, e.g. "$1.500"
func (z ShippingZone) PriceDisplay() string {
	s := FormatPrice(z.Price)
	return strings.TrimSuffix(s, ",00")
}

var (
	ZoneCABA     = ShippingZone{Name: "CABA", Price: decimal.NewFromInt(1500), Delivery: "24-48 horas"}
	ZoneGBA      = ShippingZone{Name: "GBA", Price: decimal.NewFromInt(2000), Delivery: "48-72 horas"}
	ZoneInterior = ShippingZone{Name: "Interior", Price: decimal.NewFromInt(3500), Delivery: "5-7 días"}
)

// ShippingZones lists the zones in display order
var ShippingZones = []ShippingZone{ZoneCABA, ZoneGBA, ZoneInterior}

// ZoneForPostalCode maps a postal code to its zone. Greater Buenos Aires
// prefixes are checked before the broader CABA ones. ok is false for an
// empty postal code.
func ZoneForPostalCode(postalCode string) (zone ShippingZone, ok bool) {
	postalCode = strings.TrimSpace(postalCode)
	switch {
	case postalCode == "":
		return ShippingZone{}, false
	case strings.HasPrefix(postalCode, "16"), strings.HasPrefix(postalCode, "17"):
		return ZoneGBA, true
	case strings.HasPrefix(postalCode, "1"), strings.HasPrefix(postalCode, "2"):
		return ZoneCABA, true
	default:
		return ZoneInterior, true
	}
}
