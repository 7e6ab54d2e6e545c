package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
)

// Snapshot is one immutable version of the full rate card.
type Snapshot struct {
	Services   []Service   `json:"services"`
	Countries  []Country   `json:"countries"`
	Profiles   []Profile   `json:"profiles"`
	Rates      []Bracket   `json:"rates"`
	Surcharges []Surcharge `json:"surcharges"`
}

type rateKey struct {
	serviceID int64
	zone      string
}

// indexed is the query-ready form of a snapshot. Built once per Replace so
// concurrent readers never see a half-built card.
type indexed struct {
	services  []Service
	countries []Country
	zones     map[string]string
	profiles  map[int64]Profile
	rates     map[rateKey][]Bracket
	charges   map[int64][]Surcharge
}

// Memory is an in-process Catalog backed by an atomically swappable
// snapshot. Reads are lock-free; administrative updates replace the whole
// card at once.
type Memory struct {
	snap atomic.Pointer[indexed]
}

// NewMemory validates and indexes the snapshot.
func NewMemory(s Snapshot) (*Memory, error) {
	m := &Memory{}
	if err := m.Replace(s); err != nil {
		return nil, err
	}
	return m, nil
}

// Replace swaps in a new rate card. In-flight reads keep the old one.
func (m *Memory) Replace(s Snapshot) error {
	ix, err := buildIndex(s)
	if err != nil {
		return err
	}
	m.snap.Store(ix)
	return nil
}

func buildIndex(s Snapshot) (*indexed, error) {
	ix := &indexed{
		services:  append([]Service(nil), s.Services...),
		countries: append([]Country(nil), s.Countries...),
		zones:     make(map[string]string, len(s.Countries)),
		profiles:  make(map[int64]Profile, len(s.Profiles)),
		rates:     make(map[rateKey][]Bracket),
		charges:   make(map[int64][]Surcharge),
	}
	seen := make(map[int64]bool, len(s.Services))
	for _, svc := range s.Services {
		if svc.ID <= 0 {
			return nil, fmt.Errorf("service %q: id must be positive", svc.Name)
		}
		if seen[svc.ID] {
			return nil, fmt.Errorf("duplicate service id %d", svc.ID)
		}
		seen[svc.ID] = true
	}
	for _, c := range s.Countries {
		code := strings.ToUpper(strings.TrimSpace(c.Code))
		if code == "" {
			return nil, errors.New("country with empty code")
		}
		if _, dup := ix.zones[code]; dup {
			return nil, fmt.Errorf("duplicate country code %s", code)
		}
		if c.Zone == "" {
			return nil, fmt.Errorf("country %s has no zone", code)
		}
		ix.zones[code] = c.Zone
	}
	for _, p := range s.Profiles {
		if !seen[p.ServiceID] {
			return nil, fmt.Errorf("profile references unknown service %d", p.ServiceID)
		}
		if p.VolumetricDivisor < 0 || p.OversizeSideCm < 0 || p.OversizeSumCm < 0 {
			return nil, fmt.Errorf("profile for service %d has negative parameter", p.ServiceID)
		}
		ix.profiles[p.ServiceID] = p
	}
	for _, b := range s.Rates {
		if b.MaxWeightKg <= 0 {
			return nil, fmt.Errorf("bracket for service %d zone %s: max weight must be positive", b.ServiceID, b.Zone)
		}
		if b.BasicPrice < 0 {
			return nil, fmt.Errorf("bracket for service %d zone %s: negative price", b.ServiceID, b.Zone)
		}
		k := rateKey{b.ServiceID, b.Zone}
		ix.rates[k] = append(ix.rates[k], b)
	}
	// Brackets must form strictly ascending, non-overlapping tiers.
	for k, brs := range ix.rates {
		sort.Slice(brs, func(i, j int) bool { return brs[i].MaxWeightKg < brs[j].MaxWeightKg })
		for i := 1; i < len(brs); i++ {
			if brs[i].MaxWeightKg == brs[i-1].MaxWeightKg {
				return nil, fmt.Errorf("duplicate bracket %gkg for service %d zone %s", brs[i].MaxWeightKg, k.serviceID, k.zone)
			}
		}
		ix.rates[k] = brs
	}
	for _, sc := range s.Surcharges {
		if strings.TrimSpace(sc.Kind) == "" {
			return nil, fmt.Errorf("surcharge for service %d with empty kind", sc.ServiceID)
		}
		sc.Kind = strings.ToLower(sc.Kind)
		ix.charges[sc.ServiceID] = append(ix.charges[sc.ServiceID], sc)
	}
	return ix, nil
}

func (m *Memory) ListServices(ctx context.Context) ([]Service, error) {
	return m.snap.Load().services, nil
}

func (m *Memory) ListCountries(ctx context.Context) ([]Country, error) {
	return m.snap.Load().countries, nil
}

func (m *Memory) ResolveZone(ctx context.Context, countryCode string) (string, error) {
	zone, ok := m.snap.Load().zones[strings.ToUpper(strings.TrimSpace(countryCode))]
	if !ok {
		return "", fmt.Errorf("country %s: %w", countryCode, ErrNotFound)
	}
	return zone, nil
}

func (m *Memory) ServiceProfile(ctx context.Context, serviceID int64) (Profile, error) {
	p, ok := m.snap.Load().profiles[serviceID]
	if !ok {
		return Profile{}, fmt.Errorf("service %d: %w", serviceID, ErrNotFound)
	}
	return p, nil
}

func (m *Memory) Brackets(ctx context.Context, serviceID int64, zone string) ([]Bracket, error) {
	return m.snap.Load().rates[rateKey{serviceID, zone}], nil
}

func (m *Memory) Surcharges(ctx context.Context, serviceID int64) ([]Surcharge, error) {
	return m.snap.Load().charges[serviceID], nil
}
