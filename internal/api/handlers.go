package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/hackgods/provider-availability/internal/schedule"
)

const defaultRangeDays = 7

func availabilityHandler(svc AvailabilityService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID := chi.URLParam(r, "id")

		date, err := dateParam(r, "date")
		if err != nil {
			handleQueryError(w, r, err)
			return
		}
		granularity, err := intParam(r, "granularity", 0)
		if err != nil {
			handleQueryError(w, r, err)
			return
		}

		day, err := svc.ProviderAvailability(r.Context(), providerID, date, granularity)
		if err != nil {
			handleQueryError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, toAvailabilityResponse(day))
	}
}

func rangeHandler(svc AvailabilityService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID := chi.URLParam(r, "id")

		start, err := dateParam(r, "start")
		if err != nil {
			handleQueryError(w, r, err)
			return
		}
		days, err := intParam(r, "days", defaultRangeDays)
		if err != nil {
			handleQueryError(w, r, err)
			return
		}
		granularity, err := intParam(r, "granularity", 0)
		if err != nil {
			handleQueryError(w, r, err)
			return
		}

		result, err := svc.ProviderRange(r.Context(), providerID, start, days, granularity)
		if err != nil {
			handleQueryError(w, r, err)
			return
		}

		resp := RangeResponse{
			ProviderID: providerID,
			Start:      start,
			Days:       make([]AvailabilityResponse, 0, len(result)),
		}
		for _, day := range result {
			resp.Days = append(resp.Days, toAvailabilityResponse(day))
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func conflictsHandler(svc AvailabilityService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date, err := dateParam(r, "date")
		if err != nil {
			handleQueryError(w, r, err)
			return
		}

		report, err := svc.Conflicts(r.Context(), date, r.URL.Query().Get("providerId"))
		if err != nil {
			handleQueryError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, toConflictsResponse(date, report))
	}
}

func statsHandler(svc AvailabilityService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date, err := dateParam(r, "date")
		if err != nil {
			handleQueryError(w, r, err)
			return
		}

		stats, err := svc.Stats(r.Context(), date)
		if err != nil {
			handleQueryError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, stats)
	}
}

// dateParam parses a YYYY-MM-DD query parameter, defaulting to today's date.
func dateParam(r *http.Request, name string) (schedule.Date, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return schedule.DateOf(time.Now()), nil
	}
	return schedule.ParseDate(raw)
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", schedule.ErrInvalidInput, name)
	}
	return n, nil
}

func handleQueryError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, schedule.ErrProviderNotFound):
		writeError(w, http.StatusNotFound, "provider_not_found", err.Error())
	case errors.Is(err, schedule.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		writeError(w, http.StatusServiceUnavailable, "timeout", "request did not complete in time")
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("query failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}
