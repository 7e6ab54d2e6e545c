package shipping

import (
	"errors"
	"fmt"

	"marketops/internal/catalog"
)

// LookupError reports an unknown country code or service id. Indicates a
// stale client or catalog drift; correctable by the caller, never retried.
type LookupError struct {
	Field string // "country_code" or "service_id"
	Value string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("unknown %s %q", e.Field, e.Value)
}

// RateNotFoundError reports that weight_used exceeds the largest configured
// bracket for the resolved (service, zone). A catalog coverage gap, not a
// user input mistake.
type RateNotFoundError struct {
	ServiceID  int64
	Zone       string
	WeightUsed float64
}

func (e *RateNotFoundError) Error() string {
	return fmt.Sprintf("no rate bracket for service %d zone %s at %.2fkg", e.ServiceID, e.Zone, e.WeightUsed)
}

// UnavailableError reports that the catalog could not be reached in time.
type UnavailableError struct {
	Err error
}

func (e *UnavailableError) Error() string { return "catalog unavailable: " + e.Err.Error() }
func (e *UnavailableError) Unwrap() error { return e.Err }

// catalogErr maps a catalog read failure onto the engine's taxonomy.
func catalogErr(err error, field, value string) error {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return &LookupError{Field: field, Value: value}
	case errors.Is(err, catalog.ErrUnavailable):
		return &UnavailableError{Err: err}
	default:
		return err
	}
}
