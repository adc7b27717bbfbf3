package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/hotelbook/libs/httpx"
	"github.com/md-rashed-zaman/hotelbook/services/booking-service/internal/interval"
	"github.com/md-rashed-zaman/hotelbook/services/booking-service/internal/model"
)

// writeError maps domain errors to status codes. Only unexpected errors are
// logged; conflicts and misses are normal outcomes.
func writeError(ctx context.Context, w http.ResponseWriter, logger *slog.Logger, op string, err error) {
	switch {
	case errors.Is(err, model.ErrInvalidRange):
		httpx.WriteError(w, http.StatusBadRequest, "InvalidDateRange")
	case errors.Is(err, model.ErrInvalidInput), errors.Is(err, interval.ErrEmpty), errors.Is(err, interval.ErrInverted):
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrUnauthorized):
		httpx.WriteError(w, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, model.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "NotFound")
	case errors.Is(err, model.ErrConflict):
		httpx.WriteError(w, http.StatusConflict, "Conflict")
	case errors.Is(err, model.ErrKeyReused):
		httpx.WriteError(w, http.StatusUnprocessableEntity, "IdempotencyKeyReused")
	case errors.Is(err, context.Canceled):
		// client went away; nobody is reading the response
		httpx.WriteError(w, http.StatusServiceUnavailable, "request cancelled")
	default:
		logger.Error(op+" failed", "request_id", httpx.RequestIDFromContext(ctx), "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}

func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.Header().Set("Allow", method)
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
	return true
}

func parseUUID(field, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: invalid %s", model.ErrInvalidInput, field)
	}
	return id, nil
}

func parseOptionalUUID(field, raw string) (*uuid.UUID, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	id, err := parseUUID(field, raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func parseTime(field, raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid %s, expected RFC3339", model.ErrInvalidInput, field)
	}
	return t, nil
}

// parseStay reads a required [start, end) pair; an inverted or empty pair is
// an invalid range, not a malformed request.
func parseStay(rawStart, rawEnd string, endInclusive bool) (interval.Interval, error) {
	start, err := parseTime("start", rawStart)
	if err != nil {
		return interval.Interval{}, err
	}
	end, err := parseTime("end", rawEnd)
	if err != nil {
		return interval.Interval{}, err
	}
	upper := interval.Excluded(end)
	if endInclusive {
		upper = interval.Included(end)
	}
	iv, err := interval.New(interval.Included(start), upper)
	if err != nil {
		return interval.Interval{}, model.ErrInvalidRange
	}
	return iv, nil
}

// parsePeriod is like parseStay but a missing end leaves that side unbounded.
func parsePeriod(rawStart, rawEnd string) (interval.Interval, error) {
	lower, upper := interval.Unbounded(), interval.Unbounded()
	if strings.TrimSpace(rawStart) != "" {
		start, err := parseTime("start", rawStart)
		if err != nil {
			return interval.Interval{}, err
		}
		lower = interval.Included(start)
	}
	if strings.TrimSpace(rawEnd) != "" {
		end, err := parseTime("end", rawEnd)
		if err != nil {
			return interval.Interval{}, err
		}
		upper = interval.Excluded(end)
	}
	iv, err := interval.New(lower, upper)
	if err != nil {
		return interval.Interval{}, model.ErrInvalidRange
	}
	return iv, nil
}
