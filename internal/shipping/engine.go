package shipping

import (
	"context"
	"math"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"marketops/internal/catalog"
)

// Quote is an itemized pricing result. Field names are the public response
// contract. Amounts are in the base currency, held at cent precision.
type Quote struct {
	Success     bool               `json:"success"`
	BaseRate    float64            `json:"base_rate"`
	Surcharges  map[string]float64 `json:"surcharges"`
	TotalAmount float64            `json:"total_amount"`
	WeightUsed  float64            `json:"weight_used"`
	Zone        string             `json:"zone"`
	IsOversized bool               `json:"is_oversized"`
}

// Engine prices validated packages against a read-only catalog. Stateless
// per call and safe for concurrent use.
type Engine struct {
	catalog catalog.Catalog
	log     *zap.Logger
	now     func() time.Time
}

func NewEngine(cat catalog.Catalog, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{catalog: cat, log: log, now: time.Now}
}

// Price computes a quote for a spec that already passed Validate. Any
// failure returns a zero quote and a typed error; callers must check the
// error (or Quote.Success) before reading amounts.
func (e *Engine) Price(ctx context.Context, spec PackageSpec) (Quote, error) {
	zone, err := e.catalog.ResolveZone(ctx, spec.CountryCode)
	if err != nil {
		return Quote{}, catalogErr(err, "country_code", spec.CountryCode)
	}
	prof, err := e.catalog.ServiceProfile(ctx, spec.ServiceID)
	if err != nil {
		return Quote{}, catalogErr(err, "service_id", strconv.FormatInt(spec.ServiceID, 10))
	}

	// Volumetric weight only ever raises the billed weight.
	weightUsed := spec.Weight
	if prof.VolumetricDivisor > 0 {
		if vol := spec.Length * spec.Width * spec.Height / prof.VolumetricDivisor; vol > weightUsed {
			weightUsed = vol
		}
	}

	brackets, err := e.catalog.Brackets(ctx, spec.ServiceID, zone)
	if err != nil {
		return Quote{}, catalogErr(err, "service_id", strconv.FormatInt(spec.ServiceID, 10))
	}
	base, ok := selectBracket(brackets, weightUsed)
	if !ok {
		rerr := &RateNotFoundError{ServiceID: spec.ServiceID, Zone: zone, WeightUsed: weightUsed}
		// Coverage gaps are a catalog data problem; make sure maintainers see them.
		e.log.Error("rate bracket missing",
			zap.Int64("service_id", spec.ServiceID),
			zap.String("zone", zone),
			zap.Float64("weight_used", weightUsed),
		)
		return Quote{}, rerr
	}

	longest := math.Max(spec.Length, math.Max(spec.Width, spec.Height))
	sum := spec.Length + spec.Width + spec.Height
	oversized := (prof.OversizeSideCm > 0 && longest > prof.OversizeSideCm) ||
		(prof.OversizeSumCm > 0 && sum > prof.OversizeSumCm)

	rules, err := e.catalog.Surcharges(ctx, spec.ServiceID)
	if err != nil {
		return Quote{}, catalogErr(err, "service_id", strconv.FormatInt(spec.ServiceID, 10))
	}

	charges := make(map[string]float64)
	now := e.now()
	for _, rule := range rules {
		if !rule.ActiveAt(now) || !rule.AppliesToZone(zone) {
			continue
		}
		if rule.Kind == SurchargeOversize && !oversized {
			continue
		}
		amount := rule.FixedAmount
		if amount == 0 {
			amount = roundCents(base * rule.Percent / 100)
		}
		if amount <= 0 {
			continue
		}
		charges[rule.Kind] = roundCents(charges[rule.Kind] + amount)
	}

	// Pure summation, but iterate in sorted kind order so totals are
	// reproducible bit for bit.
	total := roundCents(base)
	kinds := make([]string, 0, len(charges))
	for kind := range charges {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		total = roundCents(total + charges[kind])
	}

	return Quote{
		Success:     true,
		BaseRate:    roundCents(base),
		Surcharges:  charges,
		TotalAmount: total,
		WeightUsed:  weightUsed,
		Zone:        zone,
		IsOversized: oversized,
	}, nil
}

// SurchargeOversize is the surcharge kind tied to the oversize flag; its
// rule only applies when the package actually is oversized.
const SurchargeOversize = "oversize"

// selectBracket picks the smallest tier whose inclusive upper bound covers
// the billed weight. Brackets arrive in ascending order from the catalog.
func selectBracket(brackets []catalog.Bracket, weightKg float64) (float64, bool) {
	for _, b := range brackets {
		if b.MaxWeightKg >= weightKg {
			return b.BasicPrice, true
		}
	}
	return 0, false
}

func roundCents(x float64) float64 {
	return math.Round(x*100) / 100
}
