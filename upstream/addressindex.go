package upstream

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/unkn0wn-root/ccfacade"
)

// AddressDTO is an address as returned by the Address Index.
type AddressDTO struct {
	UPRN              string `json:"uprn"`
	FormattedAddress  string `json:"formattedAddress,omitempty"`
	AddressLine1      string `json:"addressLine1,omitempty"`
	AddressLine2      string `json:"addressLine2,omitempty"`
	AddressLine3      string `json:"addressLine3,omitempty"`
	TownName          string `json:"townName,omitempty"`
	Postcode          string `json:"postcode,omitempty"`
	CensusAddressType string `json:"censusAddressType,omitempty"`
	CensusEstabType   string `json:"censusEstabType,omitempty"`
	CountryCode       string `json:"countryCode,omitempty"`
}

// ToCachedCase builds a new cached case with the given id.
func (d AddressDTO) ToCachedCase(id string) ccfacade.CachedCase {
	return ccfacade.CachedCase{
		ID:               id,
		UPRN:             d.UPRN,
		FormattedAddress: d.FormattedAddress,
		AddressLine1:     d.AddressLine1,
		AddressLine2:     d.AddressLine2,
		AddressLine3:     d.AddressLine3,
		TownName:         d.TownName,
		Postcode:         d.Postcode,
		AddressType:      d.CensusAddressType,
		EstabType:        d.CensusEstabType,
		Region:           d.CountryCode,
	}
}

// AddressPage is one page of a postcode query.
type AddressPage struct {
	Addresses []AddressDTO `json:"addresses"`
	Total     int          `json:"total"`
	Offset    int          `json:"offset"`
	Limit     int          `json:"limit"`
}

type addressResponse struct {
	Response struct {
		Address AddressDTO `json:"address"`
	} `json:"response"`
}

type postcodeResponse struct {
	Response AddressPage `json:"response"`
}

type AddressIndexClient struct {
	base
}

func NewAddressIndexClient(baseURL string, timeout time.Duration, opts ...Option) *AddressIndexClient {
	return &AddressIndexClient{base: newBase(baseURL, timeout, opts)}
}

func (c *AddressIndexClient) AddressByUPRN(ctx context.Context, uprn ccfacade.UPRN) (AddressDTO, error) {
	var out addressResponse
	if err := c.getJSON(ctx, "/addresses/rh/uprn/"+uprn.String(), &out); err != nil {
		return AddressDTO{}, err
	}
	return out.Response.Address, nil
}

// AddressesByPostcode returns up to limit addresses from offset.
func (c *AddressIndexClient) AddressesByPostcode(ctx context.Context, postcode string, offset, limit int) (AddressPage, error) {
	q := url.Values{}
	q.Set("offset", strconv.Itoa(offset))
	q.Set("limit", strconv.Itoa(limit))

	var out postcodeResponse
	if err := c.getJSON(ctx, "/addresses/postcode/"+url.PathEscape(postcode)+"?"+q.Encode(), &out); err != nil {
		return AddressPage{}, err
	}
	return out.Response, nil
}
