package domain

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// CurrencyScale returns the ISO 4217 number of minor-unit digits for code.
func CurrencyScale(code string) (int32, error) {
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return 0, ErrInvalidCurrency.WithDetail("currency", code)
	}
	scale, _ := currency.Standard.Rounding(unit)
	return int32(scale), nil
}

// ToMinorUnits converts a decimal amount string such as "1.81" to integer minor units.
func ToMinorUnits(amount, code string) (int64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return 0, WrapError(ErrorCodeValidationAmountInvalid, "invalid amount", err).WithDetail("amount", amount)
	}
	scale, err := CurrencyScale(code)
	if err != nil {
		return 0, err
	}
	return d.Shift(scale).Round(0).IntPart(), nil
}

// FromMinorUnits converts minor units back to a decimal amount.
func FromMinorUnits(amount int64, code string) (decimal.Decimal, error) {
	scale, err := CurrencyScale(code)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.New(amount, -scale), nil
}

// FormatAmount renders amount with the currency's number of decimals, as the gateway expects.
func FormatAmount(amount decimal.Decimal, code string) (string, error) {
	scale, err := CurrencyScale(code)
	if err != nil {
		return "", err
	}
	return amount.StringFixed(scale), nil
}
