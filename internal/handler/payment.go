package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"paydash/internal/domain"
	"paydash/internal/payment"
	"paydash/pkg/errors"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

type PaymentHandler struct {
	service      *payment.Service
	defaultLimit int
	location     *time.Location
	logger       Logger
}

// NewPaymentHandler builds the payments handler. Date-only filter values are
// interpreted in loc.
func NewPaymentHandler(service *payment.Service, defaultLimit int, loc *time.Location, log Logger) *PaymentHandler {
	if defaultLimit <= 0 {
		defaultLimit = 10
	}
	if loc == nil {
		loc = time.UTC
	}
	return &PaymentHandler{service: service, defaultLimit: defaultLimit, location: loc, logger: log}
}

// createPaymentRequest keeps amount raw so only JSON numbers are accepted.
type createPaymentRequest struct {
	Amount   json.RawMessage      `json:"amount"`
	Receiver string               `json:"receiver"`
	Status   domain.PaymentStatus `json:"status"`
	Method   domain.PaymentMethod `json:"method"`
}

func (req createPaymentRequest) input() (*domain.CreatePaymentInput, map[string]string) {
	in := &domain.CreatePaymentInput{Receiver: req.Receiver, Status: req.Status, Method: req.Method}

	raw := bytes.TrimSpace(req.Amount)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return in, nil
	}
	if raw[0] != '-' && (raw[0] < '0' || raw[0] > '9') {
		return nil, map[string]string{"amount": "Must be a number"}
	}
	amount, err := decimal.NewFromString(string(raw))
	if err != nil {
		return nil, map[string]string{"amount": "Must be a number"}
	}
	in.Amount = &amount
	return in, nil
}

// CreatePayment handles POST /payments.
func (h *PaymentHandler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req createPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondValidationErrors(w, map[string]string{"_global": "Invalid request body"})
		return
	}
	in, fields := req.input()
	if fields != nil {
		respondValidationErrors(w, fields)
		return
	}

	p, err := h.service.CreatePayment(r.Context(), in)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, p)
}

// ListPayments handles GET /payments.
func (h *PaymentHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	filter, err := h.parseFilter(r)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	page, err := h.service.ListPayments(r.Context(), filter)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, page)
}

// GetPayment handles GET /payments/{id}.
func (h *PaymentHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		// A malformed id cannot name an existing record.
		respondError(w, http.StatusNotFound, errors.KindNotFound, "Payment not found")
		return
	}

	p, err := h.service.GetPayment(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, p)
}

// GetStats handles GET /payments/stats.
func (h *PaymentHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetStats(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

// parseFilter reads the list query. Absent or empty parameters impose no
// constraint; range and enum checks are left to the service.
func (h *PaymentHandler) parseFilter(r *http.Request) (domain.PaymentFilter, error) {
	q := r.URL.Query()
	f := domain.PaymentFilter{Page: 1, Limit: h.defaultLimit}

	if v := strings.TrimSpace(q.Get("page")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return f, errors.NewFilterError("page", "must be a positive integer")
		}
		f.Page = n
	}
	if v := strings.TrimSpace(q.Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return f, errors.NewFilterError("limit", "must be a positive integer")
		}
		f.Limit = n
	}
	if v := strings.TrimSpace(q.Get("status")); v != "" {
		f.Status = domain.StatusPtr(domain.PaymentStatus(v))
	}
	if v := strings.TrimSpace(q.Get("method")); v != "" {
		f.Method = domain.MethodPtr(domain.PaymentMethod(v))
	}
	if v := strings.TrimSpace(q.Get("startDate")); v != "" {
		t, err := h.parseDate(v, false)
		if err != nil {
			return f, errors.NewFilterError("startDate", "must be RFC3339 or YYYY-MM-DD")
		}
		f.StartDate = &t
	}
	if v := strings.TrimSpace(q.Get("endDate")); v != "" {
		t, err := h.parseDate(v, true)
		if err != nil {
			return f, errors.NewFilterError("endDate", "must be RFC3339 or YYYY-MM-DD")
		}
		f.EndDate = &t
	}
	return f, nil
}

// parseDate accepts RFC3339 or a calendar date. A calendar date used as an
// upper bound covers the whole day.
func (h *PaymentHandler) parseDate(v string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(dateLayout, v, h.location)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1).Add(-time.Microsecond)
	}
	return t, nil
}
