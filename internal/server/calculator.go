package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"marketops/internal/catalog"
	"marketops/internal/shipping"
)

// The calculator endpoints speak the console's {success, ...} envelope so
// the form can surface messages directly.

type countryJSON struct {
	Code   string `json:"country_code"`
	Name   string `json:"country_name"`
	NameJP string `json:"country_name_jp"`
}

type calculatorData struct {
	Services  []catalog.Service `json:"services"`
	Countries []countryJSON     `json:"countries"`
}

type calculatorDataResponse struct {
	Success bool           `json:"success"`
	Data    calculatorData `json:"data"`
}

type calculatorFailure struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// handleCalculatorData serves the selection data for the calculator form:
// the catalog's services and countries in catalog order.
func (s *Server) handleCalculatorData(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), catalogTimeout)
	defer cancel()

	services, err := s.cat.ListServices(ctx)
	if err != nil {
		s.writeCatalogFailure(w, err)
		return
	}
	countries, err := s.cat.ListCountries(ctx)
	if err != nil {
		s.writeCatalogFailure(w, err)
		return
	}

	data := calculatorData{Services: services, Countries: make([]countryJSON, 0, len(countries))}
	for _, c := range countries {
		data.Countries = append(data.Countries, countryJSON{Code: c.Code, Name: c.Name, NameJP: c.NameJP})
	}
	writeJSON(w, http.StatusOK, calculatorDataResponse{Success: true, Data: data})
}

// handleCalculateShipping validates the package and prices it. Validation
// failures return every violated rule at once; pricing failures map onto
// the engine's error taxonomy.
func (s *Server) handleCalculateShipping(w http.ResponseWriter, r *http.Request) {
	var spec shipping.PackageSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		writeJSON(w, http.StatusBadRequest, calculatorFailure{Message: "invalid json"})
		return
	}

	if ok, errs := shipping.Validate(spec); !ok {
		writeJSON(w, http.StatusBadRequest, calculatorFailure{Message: strings.Join(errs, "\n")})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), catalogTimeout)
	defer cancel()

	quote, err := s.eng.Price(ctx, spec)
	if err != nil {
		var lookupErr *shipping.LookupError
		var rateErr *shipping.RateNotFoundError
		var unavailErr *shipping.UnavailableError
		switch {
		case errors.As(err, &lookupErr):
			writeJSON(w, http.StatusBadRequest, calculatorFailure{Message: lookupErr.Error()})
		case errors.As(err, &rateErr):
			writeJSON(w, http.StatusUnprocessableEntity, calculatorFailure{Message: rateErr.Error()})
		case errors.As(err, &unavailErr):
			writeJSON(w, http.StatusServiceUnavailable, calculatorFailure{Message: "catalog unavailable"})
		default:
			s.log.Error("shipping calculation failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, calculatorFailure{Message: "failed to compute shipping cost"})
		}
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func (s *Server) writeCatalogFailure(w http.ResponseWriter, err error) {
	if errors.Is(err, catalog.ErrUnavailable) {
		writeJSON(w, http.StatusServiceUnavailable, calculatorFailure{Message: "catalog unavailable"})
		return
	}
	s.log.Error("catalog read failed", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, calculatorFailure{Message: "failed to load shipping data"})
}
