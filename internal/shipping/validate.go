// Package shipping implements the shipping cost computation engine: input
// validation against the carrier's physical limits and zone/bracket based
// pricing with surcharge composition.
package shipping

import "fmt"

// PackageSpec is a candidate package plus the selected service and
// destination. Field names are the public request contract.
type PackageSpec struct {
	ServiceID   int64   `json:"service_id"`
	CountryCode string  `json:"country_code"`
	Length      float64 `json:"length"` // cm
	Width       float64 `json:"width"`  // cm
	Height      float64 `json:"height"` // cm
	Weight      float64 `json:"weight"` // kg
}

// Carrier policy limits. These thresholds are a public contract: clients
// mirror them for pre-validation.
const (
	MaxWeightKg   = 30.0
	MaxSideCm     = 160.0
	MaxCombinedCm = 260.0
)

// Validate checks the physical constraints on a package. All rules are
// checked independently and every violated rule contributes one message;
// it never short-circuits. ok is true iff errs is empty.
func Validate(spec PackageSpec) (ok bool, errs []string) {
	if spec.Weight <= 0 {
		errs = append(errs, "weight must be greater than 0")
	}
	if spec.Weight > MaxWeightKg {
		errs = append(errs, fmt.Sprintf("weight must be %gkg or less", MaxWeightKg))
	}
	if spec.Length <= 0 || spec.Width <= 0 || spec.Height <= 0 {
		errs = append(errs, "each dimension must be greater than 0")
	}
	if spec.Length > MaxSideCm || spec.Width > MaxSideCm || spec.Height > MaxSideCm {
		errs = append(errs, fmt.Sprintf("each dimension must be %gcm or less", MaxSideCm))
	}
	if spec.Length+spec.Width+spec.Height > MaxCombinedCm {
		errs = append(errs, fmt.Sprintf("combined dimensions must be %gcm or less", MaxCombinedCm))
	}
	return len(errs) == 0, errs
}
