// Package catalog provides read-only access to the shipping master data:
// carrier services, destination countries with their pricing zones, weight
// bracket rate tables, volumetric/oversize profiles and surcharge rules.
//
// The pricing engine depends only on the Catalog interface so it can be
// exercised against an in-memory snapshot in tests and against Postgres in
// production. Rate numbers are always supplied data, never compiled in.
package catalog

import (
	"context"
	"errors"
	"time"
)

// Service is a shippable carrier/method offering.
type Service struct {
	ID   int64  `json:"id"`
	Name string `json:"service_name"`
}

// Country is a destination with its catalog-assigned pricing zone.
type Country struct {
	Code   string `json:"country_code"`
	Name   string `json:"country_name"`
	NameJP string `json:"country_name_jp"`
	Zone   string `json:"zone"`
}

// Profile holds the per-service physical pricing parameters.
// A zero threshold disables the corresponding check.
type Profile struct {
	ServiceID         int64   `json:"service_id"`
	VolumetricDivisor float64 `json:"volumetric_divisor"`
	OversizeSideCm    float64 `json:"oversize_side_cm"`
	OversizeSumCm     float64 `json:"oversize_sum_cm"`
}

// Bracket is one ascending weight tier of a rate table. MaxWeightKg is the
// inclusive upper bound of the tier.
type Bracket struct {
	ServiceID   int64   `json:"service_id"`
	Zone        string  `json:"zone"`
	MaxWeightKg float64 `json:"max_weight_kg"`
	BasicPrice  float64 `json:"basic_price"`
}

// Surcharge is a configured surcharge rule. FixedAmount takes precedence
// over Percent when both are set. An empty Zones list applies everywhere;
// zero From/Until mean an unbounded validity window.
type Surcharge struct {
	ServiceID   int64     `json:"service_id"`
	Kind        string    `json:"kind"`
	Percent     float64   `json:"percent,omitempty"`
	FixedAmount float64   `json:"fixed_amount,omitempty"`
	Zones       []string  `json:"zones,omitempty"`
	From        time.Time `json:"from,omitempty"`
	Until       time.Time `json:"until,omitempty"`
}

// ActiveAt reports whether the rule's validity window covers t.
func (s Surcharge) ActiveAt(t time.Time) bool {
	if !s.From.IsZero() && t.Before(s.From) {
		return false
	}
	if !s.Until.IsZero() && t.After(s.Until) {
		return false
	}
	return true
}

// AppliesToZone reports whether the rule is scoped to the given zone.
func (s Surcharge) AppliesToZone(zone string) bool {
	if len(s.Zones) == 0 {
		return true
	}
	for _, z := range s.Zones {
		if z == zone {
			return true
		}
	}
	return false
}

// ErrNotFound reports a key absent from the catalog (unknown country code
// or service id). Callers must treat it as a fatal input error, not a
// retryable one.
var ErrNotFound = errors.New("not found in catalog")

// ErrUnavailable reports that the catalog backing store could not be
// reached within the allotted time. Transient; callers may retry.
var ErrUnavailable = errors.New("catalog unavailable")

// Catalog is the read-only capability surface the engine depends on.
// Listing order is catalog-defined and stable. All reads within a single
// pricing call observe a consistent catalog snapshot.
type Catalog interface {
	ListServices(ctx context.Context) ([]Service, error)
	ListCountries(ctx context.Context) ([]Country, error)
	ResolveZone(ctx context.Context, countryCode string) (string, error)
	ServiceProfile(ctx context.Context, serviceID int64) (Profile, error)
	Brackets(ctx context.Context, serviceID int64, zone string) ([]Bracket, error)
	Surcharges(ctx context.Context, serviceID int64) ([]Surcharge, error)
}
