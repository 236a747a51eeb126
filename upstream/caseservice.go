package upstream

import (
	"context"
	"net/url"
	"time"

	"github.com/unkn0wn-root/ccfacade"
)

// CaseDTO is a case as returned by the Case Service.
type CaseDTO struct {
	ID               string `json:"id"`
	CaseRef          string `json:"caseRef,omitempty"`
	CaseType         string `json:"caseType,omitempty"`
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

func (d CaseDTO) ToCachedCase() ccfacade.CachedCase {
	return ccfacade.CachedCase{
		ID:               d.ID,
		UPRN:             d.UPRN,
		FormattedAddress: d.FormattedAddress,
		AddressLine1:     d.AddressLine1,
		AddressLine2:     d.AddressLine2,
		AddressLine3:     d.AddressLine3,
		TownName:         d.TownName,
		Postcode:         d.Postcode,
		AddressType:      d.AddressType,
		EstabType:        d.EstabType,
		Region:           d.Region,
	}
}

type CaseServiceClient struct {
	base
}

func NewCaseServiceClient(baseURL string, timeout time.Duration, opts ...Option) *CaseServiceClient {
	return &CaseServiceClient{base: newBase(baseURL, timeout, opts)}
}

// GetCaseByUPRN returns the case registered at uprn, or ErrNotFound.
func (c *CaseServiceClient) GetCaseByUPRN(ctx context.Context, uprn ccfacade.UPRN) (CaseDTO, error) {
	var out CaseDTO
	err := c.getJSON(ctx, "/cases/uprn/"+uprn.String(), &out)
	return out, err
}

func (c *CaseServiceClient) GetCaseByID(ctx context.Context, id string) (CaseDTO, error) {
	var out CaseDTO
	err := c.getJSON(ctx, "/cases/"+url.PathEscape(id), &out)
	return out, err
}
