// Package lookup resolves a case for a UPRN across the Case Service, the
// cached-case store and the Address Index.
package lookup

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/unkn0wn-root/ccfacade"
	"github.com/unkn0wn-root/ccfacade/publisher"
	"github.com/unkn0wn-root/ccfacade/upstream"
)

// ErrNotFound means no source knows the UPRN.
var ErrNotFound = errors.New("lookup: no case or address for uprn")

// Source says where a resolved case came from.
type Source int

const (
	SourceCaseService Source = iota + 1
	SourceCache
	SourceAddressIndex
)

func (s Source) String() string {
	switch s {
	case SourceCaseService:
		return "case-service"
	case SourceCache:
		return "cache"
	case SourceAddressIndex:
		return "address-index"
	default:
		return "unknown"
	}
}

type CaseService interface {
	GetCaseByUPRN(ctx context.Context, uprn ccfacade.UPRN) (upstream.CaseDTO, error)
}

type AddressIndex interface {
	AddressByUPRN(ctx context.Context, uprn ccfacade.UPRN) (upstream.AddressDTO, error)
}

// NewAddressEvent is the payload of NEW_ADDRESS_REPORTED.
type NewAddressEvent struct {
	CollectionCase ccfacade.CachedCase `json:"collectionCase"`
}

type Config struct {
	Cases     CaseService
	Addresses AddressIndex
	Store     ccfacade.CaseStore
	Publisher publisher.Publisher
	Logger    ccfacade.Logger
	NewID     func() string // nil => uuid.NewString
}

type Service struct {
	cases     CaseService
	addresses AddressIndex
	store     ccfacade.CaseStore
	pub       publisher.Publisher
	log       ccfacade.Logger
	newID     func() string
}

func New(cfg Config) (*Service, error) {
	switch {
	case cfg.Cases == nil:
		return nil, fmt.Errorf("lookup: case service client is required")
	case cfg.Addresses == nil:
		return nil, fmt.Errorf("lookup: address index client is required")
	case cfg.Store == nil:
		return nil, fmt.Errorf("lookup: case store is required")
	case cfg.Publisher == nil:
		return nil, fmt.Errorf("lookup: publisher is required")
	}
	s := &Service{
		cases:     cfg.Cases,
		addresses: cfg.Addresses,
		store:     cfg.Store,
		pub:       cfg.Publisher,
		log:       cfg.Logger,
		newID:     cfg.NewID,
	}
	if s.log == nil {
		s.log = ccfacade.NopLogger{}
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s, nil
}

// ResolveByUPRN returns the case for uprn. A UPRN unknown to the Case Service
// and the cache, but known to the Address Index, gets a new case which is
// cached and reported as a new address.
func (s *Service) ResolveByUPRN(ctx context.Context, uprn ccfacade.UPRN) (ccfacade.CachedCase, Source, error) {
	key := uprn.String()

	dto, err := s.cases.GetCaseByUPRN(ctx, uprn)
	if err == nil {
		return dto.ToCachedCase(), SourceCaseService, nil
	}
	if !errors.Is(err, upstream.ErrNotFound) {
		return ccfacade.CachedCase{}, 0, fmt.Errorf("case service: %w", err)
	}

	if c, ok, err := s.store.Read(ctx, uprn); err != nil {
		return ccfacade.CachedCase{}, 0, err
	} else if ok {
		s.log.Debug("case served from cache", ccfacade.Fields{"uprn": key})
		return c, SourceCache, nil
	}

	addr, err := s.addresses.AddressByUPRN(ctx, uprn)
	if errors.Is(err, upstream.ErrNotFound) {
		return ccfacade.CachedCase{}, 0, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return ccfacade.CachedCase{}, 0, fmt.Errorf("address index: %w", err)
	}

	c := addr.ToCachedCase(s.newID())
	c.UPRN = key
	if err := s.store.Store(ctx, c); err != nil {
		return ccfacade.CachedCase{}, 0, err
	}

	env, err := s.pub.Publish(ctx, publisher.DestinationNewAddress, publisher.EventNewAddressReported, NewAddressEvent{CollectionCase: c})
	if err != nil {
		return ccfacade.CachedCase{}, 0, err
	}
	s.log.Info("new address reported", ccfacade.Fields{"uprn": key, "caseId": c.ID, "transactionId": env.Header.TransactionID})
	return c, SourceAddressIndex, nil
}
