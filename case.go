package ccfacade

import (
	"fmt"
	"strconv"
	"strings"
)

// CachedCase is a denormalised snapshot of an address/case, keyed by UPRN.
type CachedCase struct {
	ID               string `json:"id"`
	UPRN             string `json:"uprn"`
	FormattedAddress string `json:"formattedAddress,omitempty"`
	AddressLine1     string `json:"addressLine1,omitempty"`
	AddressLine2     string `json:"addressLine2,omitempty"`
	AddressLine3     string `json:"addressLine3,omitempty"`
	TownName         string `json:"townName,omitempty"`
	Postcode         string `json:"postcode,omitempty"`
	AddressType      string `json:"addressType,omitempty"`
	EstabType        string `json:"estabType,omitempty"`
	Region           string `json:"region,omitempty"`
}

// MaxUPRN is the largest Unique Property Reference Number (12 digits).
const MaxUPRN UPRN = 999999999999

// UPRN is a Unique Property Reference Number.
type UPRN uint64

// ParseUPRN accepts 1 to 12 decimal digits, ignoring surrounding space.
func ParseUPRN(s string) (UPRN, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrMissingUPRN
	}
	if len(s) > 12 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidUPRN, s)
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, fmt.Errorf("%w: %q", ErrInvalidUPRN, s)
		}
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidUPRN, s)
	}
	return UPRN(v), nil
}

// String is the canonical storage key: decimal, no leading zeros.
func (u UPRN) String() string { return strconv.FormatUint(uint64(u), 10) }

// Key returns the canonical key of c.UPRN.
func (c CachedCase) Key() (string, error) {
	u, err := ParseUPRN(c.UPRN)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// CollectionName derives the collection holding cached cases:
// lower(project + "-" + schema).
func CollectionName(project, schema string) string {
	return strings.ToLower(project + "-" + schema)
}
