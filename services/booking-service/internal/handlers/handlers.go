package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/md-rashed-zaman/slotdesk/libs/auth"
	"github.com/md-rashed-zaman/slotdesk/libs/httpx"
	"github.com/md-rashed-zaman/slotdesk/services/booking-service/internal/accounts"
	"github.com/md-rashed-zaman/slotdesk/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/slotdesk/services/booking-service/internal/directory"
	"github.com/md-rashed-zaman/slotdesk/services/booking-service/internal/lifecycle"
	"github.com/md-rashed-zaman/slotdesk/services/booking-service/internal/service"
	"github.com/md-rashed-zaman/slotdesk/services/booking-service/internal/storage"
)

type Handler struct {
	svc      *service.Service
	logger   *slog.Logger
	validate *validator.Validate
	now      func() time.Time
}

func New(svc *service.Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger, validate: newValidator(), now: time.Now}
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decode reads a JSON body into dst and validates it. It writes the error
// response itself and returns false on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, httpx.ErrInvalidJSON.Error())
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeValidation(w, err)
		return false
	}
	return true
}

func writeValidation(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fieldPath(fe)] = describe(fe)
	}
	httpx.WriteFieldErrors(w, http.StatusUnprocessableEntity, "validation failed", fields)
}

// fieldPath drops the struct name from the namespace: "availability[0].start".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return fe.Field()
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "datetime":
		return "must use the format " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	case "min", "max", "len":
		return fmt.Sprintf("%s %s", fe.Tag(), fe.Param())
	}
	return "is invalid (" + fe.Tag() + ")"
}

// writeError maps domain errors to HTTP statuses. Unknown errors are logged and
// reported as 500 without detail.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr *service.ValidationError
		dup  *directory.DuplicateSlugError
	)
	switch {
	case errors.As(err, &verr):
		httpx.WriteFieldErrors(w, http.StatusUnprocessableEntity, "validation failed", verr.Fields)
	case errors.As(err, &dup):
		httpx.WriteError(w, http.StatusConflict, dup.Error())
	case errors.Is(err, service.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not found")
	case errors.Is(err, booking.ErrSlotTaken),
		errors.Is(err, directory.ErrEmailTaken),
		errors.Is(err, lifecycle.ErrInvalidTransition),
		errors.Is(err, storage.ErrConflict),
		errors.Is(err, service.ErrReminderRejected):
		httpx.WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, booking.ErrPastDate),
		errors.Is(err, booking.ErrUnknownTime),
		errors.Is(err, booking.ErrMissingDetails),
		errors.Is(err, booking.ErrIncomplete),
		errors.Is(err, directory.ErrEmptySlug):
		httpx.WriteError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, accounts.ErrInvalidCredentials):
		httpx.WriteError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, accounts.ErrAccountDisabled):
		httpx.WriteError(w, http.StatusForbidden, err.Error())
	default:
		h.logger.ErrorContext(r.Context(), "request failed",
			"err", err,
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", httpx.RequestIDFromContext(r.Context()),
		)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}

// callerProviderID is set by RequireRole for provider routes.
func callerProviderID(r *http.Request) string {
	if c, ok := auth.ClaimsFromContext(r.Context()); ok {
		return c.ProviderID
	}
	return ""
}
