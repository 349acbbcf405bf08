package service

import "github.com/zarachi/zarachi-backend/internal/model"

// sizeModFeePercent is the fixed tailoring surcharge applied to a line when
// the customer asks for custom measurements and the product allows it.
const sizeModFeePercent = 5

var supportedCurrencies = map[string]bool{
	"NGN": true,
	"USD": true,
}

func unitPrice(p *model.Product, currency string) (int64, bool) {
	switch currency {
	case "NGN":
		return p.PriceNGN, true
	case "USD":
		return p.PriceUSD, true
	}
	return 0, false
}

// priceLine computes one line's total in the order currency. The fee uses
// integer division; sub-unit remainders round down.
func priceLine(unit, quantity int64, sizeMod bool) (total, fee int64) {
	base := unit * quantity
	if sizeMod {
		fee = base * sizeModFeePercent / 100
	}
	return base + fee, fee
}

// toSubunits converts a major-unit amount to the gateway's lowest
// denomination (kobo for NGN, cents for USD).
func toSubunits(amount int64) int64 {
	return amount * 100
}
