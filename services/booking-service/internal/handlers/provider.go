package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/md-rashed-zaman/slotdesk/libs/httpx"
	"github.com/md-rashed-zaman/slotdesk/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotdesk/services/booking-service/internal/service"
)

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending confirmed rejected"`
}

type reminderResponse struct {
	Appointment model.Appointment `json:"appointment"`
	Sent        bool              `json:"sent"`
}

type slotRequest struct {
	ID        string `json:"id"`
	DayOfWeek int    `json:"day_of_week" validate:"min=0,max=6"`
	Start     string `json:"start" validate:"required,len=5"`
	End       string `json:"end" validate:"required,len=5"`
}

type settingsRequest struct {
	Name          *string                  `json:"name" validate:"omitempty,max=120"`
	BusinessName  *string                  `json:"business_name" validate:"omitempty,max=160"`
	BusinessType  *string                  `json:"business_type" validate:"omitempty,oneof=medical sports beauty education other"`
	Slug          *string                  `json:"slug" validate:"omitempty,max=80"`
	Email         *string                  `json:"email" validate:"omitempty,email"`
	Password      *string                  `json:"password" validate:"omitempty,min=8"`
	LogoURL       *string                  `json:"logo_url" validate:"omitempty,url"`
	HeaderColor   *string                  `json:"header_color" validate:"omitempty,hexcolor"`
	Notifications *model.NotificationPrefs `json:"notifications"`
	Availability  *[]slotRequest           `json:"availability" validate:"omitempty,dive"`
}

func (req settingsRequest) update() service.SettingsUpdate {
	u := service.SettingsUpdate{
		Name:          req.Name,
		BusinessName:  req.BusinessName,
		Slug:          req.Slug,
		Email:         req.Email,
		Password:      req.Password,
		LogoURL:       req.LogoURL,
		HeaderColor:   req.HeaderColor,
		Notifications: req.Notifications,
	}
	if req.BusinessType != nil {
		bt := model.BusinessType(*req.BusinessType)
		u.BusinessType = &bt
	}
	if req.Availability != nil {
		slots := make([]model.RecurringSlot, 0, len(*req.Availability))
		for _, s := range *req.Availability {
			slots = append(slots, model.RecurringSlot{ID: s.ID, DayOfWeek: s.DayOfWeek, Start: s.Start, End: s.End})
		}
		u.Availability = &slots
	}
	return u
}

func (h *Handler) ProviderAppointments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	appts, err := h.svc.ProviderAppointments(r.Context(), callerProviderID(r), q.Get("status"), q.Get("q"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, list(appts))
}

func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !h.decode(w, r, &req) {
		return
	}
	appt, err := h.svc.SetAppointmentStatus(r.Context(), callerProviderID(r), mux.Vars(r)["id"], model.Status(req.Status))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, appt)
}

func (h *Handler) SendReminder(w http.ResponseWriter, r *http.Request) {
	appt, sent, err := h.svc.SendReminder(r.Context(), callerProviderID(r), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, reminderResponse{Appointment: appt, Sent: sent})
}

func (h *Handler) Clients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.svc.Clients(r.Context(), callerProviderID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, list(clients))
}

func (h *Handler) ClientHistory(w http.ResponseWriter, r *http.Request) {
	appts, err := h.svc.ClientHistory(r.Context(), callerProviderID(r), mux.Vars(r)["phone"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, list(appts))
}

func (h *Handler) Settings(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Settings(r.Context(), callerProviderID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toProviderView(p, h.now()))
}

func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if !h.decode(w, r, &req) {
		return
	}
	p, err := h.svc.UpdateSettings(r.Context(), callerProviderID(r), req.update())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toProviderView(p, h.now()))
}
