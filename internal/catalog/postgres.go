package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres reads the master tables (m_service, m_countries, m_shipping,
// m_shipping_surcharge). Each accessor runs within the caller's context
// deadline; a deadline hit surfaces as ErrUnavailable, an absent key as
// ErrNotFound.
type Postgres struct {
	db *pgxpool.Pool
}

func NewPostgres(db *pgxpool.Pool) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) ListServices(ctx context.Context) ([]Service, error) {
	rows, err := p.db.Query(ctx, `SELECT id, service_name FROM m_service ORDER BY id`)
	if err != nil {
		return nil, storeErr(ctx, err)
	}
	defer rows.Close()
	var out []Service
	for rows.Next() {
		var s Service
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, storeErr(ctx, err)
		}
		out = append(out, s)
	}
	return out, storeErr(ctx, rows.Err())
}

func (p *Postgres) ListCountries(ctx context.Context) ([]Country, error) {
	rows, err := p.db.Query(ctx, `
		SELECT country_code, country_name, country_name_jp, zone
		FROM m_countries
		ORDER BY id`)
	if err != nil {
		return nil, storeErr(ctx, err)
	}
	defer rows.Close()
	var out []Country
	for rows.Next() {
		var c Country
		if err := rows.Scan(&c.Code, &c.Name, &c.NameJP, &c.Zone); err != nil {
			return nil, storeErr(ctx, err)
		}
		out = append(out, c)
	}
	return out, storeErr(ctx, rows.Err())
}

func (p *Postgres) ResolveZone(ctx context.Context, countryCode string) (string, error) {
	var zone string
	err := p.db.QueryRow(ctx,
		`SELECT zone FROM m_countries WHERE country_code = upper(trim($1))`,
		countryCode).Scan(&zone)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("country %s: %w", countryCode, ErrNotFound)
		}
		return "", storeErr(ctx, err)
	}
	return zone, nil
}

func (p *Postgres) ServiceProfile(ctx context.Context, serviceID int64) (Profile, error) {
	prof := Profile{ServiceID: serviceID}
	err := p.db.QueryRow(ctx, `
		SELECT volumetric_divisor, oversize_side_cm, oversize_sum_cm
		FROM m_service
		WHERE id = $1`, serviceID).Scan(
		&prof.VolumetricDivisor, &prof.OversizeSideCm, &prof.OversizeSumCm)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Profile{}, fmt.Errorf("service %d: %w", serviceID, ErrNotFound)
		}
		return Profile{}, storeErr(ctx, err)
	}
	return prof, nil
}

func (p *Postgres) Brackets(ctx context.Context, serviceID int64, zone string) ([]Bracket, error) {
	rows, err := p.db.Query(ctx, `
		SELECT weight, basic_price
		FROM m_shipping
		WHERE service_id = $1 AND zone = $2
		ORDER BY weight`, serviceID, zone)
	if err != nil {
		return nil, storeErr(ctx, err)
	}
	defer rows.Close()
	var out []Bracket
	for rows.Next() {
		b := Bracket{ServiceID: serviceID, Zone: zone}
		if err := rows.Scan(&b.MaxWeightKg, &b.BasicPrice); err != nil {
			return nil, storeErr(ctx, err)
		}
		out = append(out, b)
	}
	return out, storeErr(ctx, rows.Err())
}

func (p *Postgres) Surcharges(ctx context.Context, serviceID int64) ([]Surcharge, error) {
	rows, err := p.db.Query(ctx, `
		SELECT lower(surcharge_type),
		       COALESCE(rate, 0),
		       COALESCE(fixed_amount, 0),
		       COALESCE(zones, '{}'),
		       start_date,
		       end_date
		FROM m_shipping_surcharge
		WHERE service_id = $1
		ORDER BY surcharge_type`, serviceID)
	if err != nil {
		return nil, storeErr(ctx, err)
	}
	defer rows.Close()
	var out []Surcharge
	for rows.Next() {
		sc := Surcharge{ServiceID: serviceID}
		var from, until *time.Time
		if err := rows.Scan(&sc.Kind, &sc.Percent, &sc.FixedAmount, &sc.Zones, &from, &until); err != nil {
			return nil, storeErr(ctx, err)
		}
		// NULL dates mean an open-ended window.
		if from != nil {
			sc.From = *from
		}
		if until != nil {
			sc.Until = *until
		}
		out = append(out, sc)
	}
	return out, storeErr(ctx, rows.Err())
}

// storeErr wraps backing-store failures as ErrUnavailable: whether the
// context deadline fired or the connection broke, the catalog could not
// answer and the caller may retry. Key misses never reach here.
func storeErr(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if cerr := ctx.Err(); cerr != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, cerr)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
