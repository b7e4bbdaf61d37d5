package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"finledger/internal/core"
	"finledger/internal/ledger"
	applog "finledger/internal/log"
	"finledger/internal/services"
)

const maxBodyBytes = 1 << 20

var errBadRequest = errors.New("bad request")

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, RequestID: applog.RequestID(r.Context())})
}

// decodeJSON reads a single JSON object from the body into v.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		// field decoders report domain errors, keep them
		if errors.Is(err, core.ErrInvalidAmount) || errors.Is(err, core.ErrInvalidDate) {
			return err
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

// statusFor maps ledger errors to HTTP status codes.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, services.ErrResetNotConfirmed):
		return http.StatusBadRequest, applog.ErrorTypeValidation
	case errors.Is(err, ledger.ErrProjectNotFound), errors.Is(err, ledger.ErrPartnerNotFound):
		return http.StatusNotFound, applog.ErrorTypeNotFound
	case errors.Is(err, ledger.ErrDuplicateTransaction):
		return http.StatusConflict, applog.ErrorTypeValidation
	case errors.Is(err, ledger.ErrInvariantViolation):
		return http.StatusInternalServerError, applog.ErrorTypeInvariant
	case errors.Is(err, ledger.ErrInvalidTransaction),
		errors.Is(err, ledger.ErrInvalidProject),
		errors.Is(err, ledger.ErrInvalidPartner),
		errors.Is(err, ledger.ErrUseWithdrawal),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidPeriod),
		errors.Is(err, core.ErrInvalidPercentage),
		errors.Is(err, core.ErrInvalidRecurrence):
		return http.StatusUnprocessableEntity, applog.ErrorTypeValidation
	default:
		return http.StatusInternalServerError, applog.ErrorTypeInternal
	}
}

// fail writes err as a JSON error. Server-side failures are logged with
// their cause and answered with a generic message.
func fail(w http.ResponseWriter, r *http.Request, operation string, err error) {
	status, errType := statusFor(err)
	logger := applog.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		logger.LogError(r.Context(), "Request failed", err, errType, operation)
		writeError(w, r, status, "internal error")
		return
	}
	logger.DebugContext(r.Context(), "Request rejected",
		applog.FieldError, err,
		applog.FieldErrorType, errType,
		applog.FieldOperation, operation)
	writeError(w, r, status, err.Error())
}

// periodFromQuery reads the optional month (0 = January) and year
// parameters.
func periodFromQuery(r *http.Request) (core.Period, error) {
	month, err := optionalInt(r, "month")
	if err != nil {
		return core.Period{}, err
	}
	year, err := optionalInt(r, "year")
	if err != nil {
		return core.Period{}, err
	}
	if year != nil && (*year < 1900 || *year > 9999) {
		return core.Period{}, fmt.Errorf("%w: year %d", core.ErrInvalidPeriod, *year)
	}
	return core.PeriodFromIndex(month, year)
}

func optionalInt(r *http.Request, name string) (*int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be an integer", core.ErrInvalidPeriod, name)
	}
	return &v, nil
}
