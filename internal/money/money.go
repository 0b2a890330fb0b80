package money

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Money is an amount rounded to two decimal places.
type Money struct {
	decimal.Decimal
}

var Zero = Money{Decimal: decimal.Zero}

func New(d decimal.Decimal) Money {
	return Money{Decimal: d.Round(2)}
}

func FromCents(cents int64) Money {
	return Money{Decimal: decimal.New(cents, -2)}
}

// MustParse panics on malformed input. Meant for fixtures and constants.
func MustParse(s string) Money {
	return Money{Decimal: decimal.RequireFromString(s).Round(2)}
}

func (m Money) Add(o Money) Money {
	return Money{Decimal: m.Decimal.Add(o.Decimal).Round(2)}
}

func (m Money) Equal(o Money) bool {
	return m.Decimal.Equal(o.Decimal)
}

func (m Money) IsNegative() bool {
	return m.Decimal.IsNegative()
}

func (m Money) String() string {
	return m.Decimal.Round(2).StringFixed(2)
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts both "12.50" and 12.5.
func (m *Money) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return err
		}
		m.Decimal = d.Round(2)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	m.Decimal = decimal.NewFromFloat(f).Round(2)
	return nil
}

func (m Money) Value() (driver.Value, error) {
	return m.Decimal.Round(2).Value()
}

func (m *Money) Scan(value interface{}) error {
	if err := m.Decimal.Scan(value); err != nil {
		return err
	}
	m.Decimal = m.Decimal.Round(2)
	return nil
}
