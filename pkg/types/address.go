package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// Address is the resolved delivery address a buyer ships the selected items to.
// The province/district/ward cascade is resolved upstream; this type only carries the result.
type Address struct {
	ID        string `json:"id,omitempty"`
	Recipient string `json:"recipient" validate:"required"`
	Phone     string `json:"phone" validate:"required"`
	Line1     string `json:"line1" validate:"required"`
	Ward      string `json:"ward" validate:"required"`
	District  string `json:"district" validate:"required"`
	Province  string `json:"province" validate:"required"`
	Country   string `json:"country,omitempty"`
}

// Key identifies the delivery location for change detection. It is built from the
// normalized location fields only: the saved-address ID, recipient and phone do not
// affect pricing, while editing any location field under the same ID does.
func (a Address) Key() string {
	country := strings.TrimSpace(a.Country)
	if country == "" {
		country = "VN"
	}
	parts := []string{
		normalizeAddressPart(a.Line1),
		normalizeAddressPart(a.Ward),
		normalizeAddressPart(a.District),
		normalizeAddressPart(a.Province),
		strings.ToUpper(country),
	}
	return "addr:" + strings.Join(parts, "|")
}

// HasLocation reports whether every location field a carrier prices on is filled in.
func (a Address) HasLocation() bool {
	for _, part := range []string{a.Line1, a.Ward, a.District, a.Province} {
		if strings.TrimSpace(part) == "" {
			return false
		}
	}
	return true
}

// AddressKey returns the key of addr, or an empty string when no address is set.
func AddressKey(addr *Address) string {
	if addr == nil {
		return ""
	}
	return addr.Key()
}

// Value serializes the address to JSON.
func (a *Address) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	return json.Marshal(a)
}

// Scan decodes a JSON column into the address.
func (a *Address) Scan(value interface{}) error {
	if value == nil {
		*a = Address{}
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return fmt.Errorf("address: %w", err)
	}
	return json.Unmarshal(raw, a)
}

func normalizeAddressPart(value string) string {
	return strings.ToLower(strings.Join(strings.Fields(value), " "))
}

func asJSON(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return nil, fmt.Errorf("unsupported scan type %T", value)
	}
}
