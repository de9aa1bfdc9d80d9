package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/md-rashed-zaman/slotdesk/libs/httpx"
	"github.com/md-rashed-zaman/slotdesk/services/booking-service/internal/service"
)

type bookRequest struct {
	Date        string `json:"date" validate:"required,datetime=2006-01-02"`
	Time        string `json:"time" validate:"required,len=5"`
	ClientName  string `json:"client_name" validate:"required,max=120"`
	ClientPhone string `json:"client_phone" validate:"required,max=40"`
	Note        string `json:"note" validate:"max=1000"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) PublicProvider(w http.ResponseWriter, r *http.Request) {
	profile, err := h.svc.PublicProvider(r.Context(), mux.Vars(r)["slug"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, profile)
}

func (h *Handler) Slots(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if err := h.validate.Var(date, "required,datetime=2006-01-02"); err != nil {
		httpx.WriteFieldErrors(w, http.StatusUnprocessableEntity, "validation failed",
			map[string]string{"date": "must use the format 2006-01-02"})
		return
	}
	day, err := h.svc.Slots(r.Context(), mux.Vars(r)["slug"], date)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, day)
}

func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if !h.decode(w, r, &req) {
		return
	}
	appt, err := h.svc.Book(r.Context(), mux.Vars(r)["slug"], service.BookRequest{
		Date:        req.Date,
		Time:        req.Time,
		ClientName:  req.ClientName,
		ClientPhone: req.ClientPhone,
		Note:        req.Note,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, appt)
}

func (h *Handler) MyBookings(w http.ResponseWriter, r *http.Request) {
	phone := r.URL.Query().Get("phone")
	if err := h.validate.Var(phone, "required"); err != nil {
		httpx.WriteFieldErrors(w, http.StatusUnprocessableEntity, "validation failed",
			map[string]string{"phone": "is required"})
		return
	}
	appts, err := h.svc.MyBookings(r.Context(), mux.Vars(r)["slug"], phone)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, list(appts))
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}
	sess, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, sess)
}
