package cart

import (
	"strings"

	"masivo-tech/models"

	"github.com/shopspring/decimal"
)

// SetShipping quotes postalCode and holds the price and code in the session.
// An empty postal code holds a zero price.
func (c *Cart) SetShipping(postalCode string) decimal.Decimal {
	postalCode = strings.TrimSpace(postalCode)

	price := decimal.Zero
	if zone, ok := models.ZoneForPostalCode(postalCode); ok {
		price = zone.Price
	}
	c.session.Values[ShippingPriceKey] = price.String()
	c.session.Values[PostalCodeKey] = postalCode
	return price
}

// ShippingPrice returns the held shipping price, zero when none is held
func (c *Cart) ShippingPrice() decimal.Decimal {
	raw, _ := c.session.Values[ShippingPriceKey].(string)
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return price
}

// PostalCode returns the held postal code
func (c *Cart) PostalCode() string {
	code, _ := c.session.Values[PostalCodeKey].(string)
	return code
}

// TotalWithShipping adds the held shipping price to the cart total
func (c *Cart) TotalWithShipping() decimal.Decimal {
	return c.TotalPrice().Add(c.ShippingPrice())
}

// ClearShipping forgets the held quote
func (c *Cart) ClearShipping() {
	delete(c.session.Values, ShippingPriceKey)
	delete(c.session.Values, PostalCodeKey)
}
