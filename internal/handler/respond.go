package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/vendor-request-system/internal/domain/application"
	"github.com/xenking/vendor-request-system/internal/domain/auth"
	"github.com/xenking/vendor-request-system/internal/domain/message"
	"github.com/xenking/vendor-request-system/internal/domain/order"
	"github.com/xenking/vendor-request-system/internal/domain/pricing"
	"github.com/xenking/vendor-request-system/internal/domain/product"
	"github.com/xenking/vendor-request-system/internal/domain/reference"
	"github.com/xenking/vendor-request-system/internal/domain/user"
	"github.com/xenking/vendor-request-system/internal/domain/validation"
)

const maxBodyBytes = 1 << 20

var (
	errMalformedBody = errors.New("malformed request body")
	errUnauthorized  = errors.New("authentication required")
	errForbidden     = errors.New("access denied")
)

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// sentinels maps domain errors to HTTP statuses. The sentinel's own text is
// sent to the client so wrap context never leaks.
var sentinels = []struct {
	err    error
	status int
}{
	{errMalformedBody, http.StatusBadRequest},
	{pricing.ErrEmptyCart, http.StatusBadRequest},
	{user.ErrInvalidRole, http.StatusBadRequest},
	{auth.ErrInvalidCredentials, http.StatusBadRequest},

	{errUnauthorized, http.StatusUnauthorized},
	{auth.ErrInvalidToken, http.StatusUnauthorized},
	{order.ErrNotOwner, http.StatusUnauthorized},
	{product.ErrNotOwner, http.StatusUnauthorized},
	{message.ErrNotReceiver, http.StatusUnauthorized},

	{errForbidden, http.StatusForbidden},
	{auth.ErrNotApproved, http.StatusForbidden},
	{application.ErrWrongType, http.StatusForbidden},

	{order.ErrNotFound, http.StatusNotFound},
	{order.ErrVendorProfileNotFound, http.StatusNotFound},
	{order.ErrCenterProfileNotFound, http.StatusNotFound},
	{product.ErrNotFound, http.StatusNotFound},
	{application.ErrNotFound, http.StatusNotFound},
	{message.ErrNotFound, http.StatusNotFound},
	{message.ErrReceiverNotFound, http.StatusNotFound},
	{user.ErrNotFound, http.StatusNotFound},
	{reference.ErrNotFound, http.StatusNotFound},

	{user.ErrEmailTaken, http.StatusConflict},
	{application.ErrAlreadySubmitted, http.StatusConflict},
	{application.ErrAlreadyDecided, http.StatusConflict},
	{reference.ErrDuplicate, http.StatusConflict},
	{order.ErrInvalidTransition, http.StatusConflict},
}

// classify returns the status and client message for err.
func classify(err error) (int, string) {
	var (
		invalid  *validation.Error
		stock    *pricing.InsufficientStockError
		quantity *pricing.InvalidQuantityError
		missing  *pricing.ProductNotFoundError
	)
	switch {
	case errors.As(err, &invalid):
		return http.StatusBadRequest, invalid.Error()
	case errors.As(err, &stock):
		return http.StatusBadRequest, stock.Error()
	case errors.As(err, &quantity):
		return http.StatusBadRequest, quantity.Error()
	case errors.As(err, &missing):
		return http.StatusNotFound, missing.Error()
	}
	for _, s := range sentinels {
		if errors.Is(err, s.err) {
			return s.status, s.err.Error()
		}
	}
	return http.StatusInternalServerError, "internal server error"
}

// fail writes the error response for err. Server-side failures are logged
// with the operation name; client errors are not.
func fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, msg := classify(err)
	if status >= http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed", zap.String("op", op), zap.Error(err))
	}
	writeJSON(w, status, errorResponse{Code: status, Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// The status line is already out; an encode error means the client left.
	_ = json.NewEncoder(w).Encode(v)
}

// decode reads a JSON body into v.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.Wrap(errMalformedBody, "empty body")
		}
		return errors.Wrap(errMalformedBody, err.Error())
	}
	return nil
}

// intParam parses a numeric path parameter.
func intParam(r *http.Request, name string) (int, error) {
	v, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || v <= 0 {
		return 0, validation.New(name, "must be a positive integer")
	}
	return v, nil
}
