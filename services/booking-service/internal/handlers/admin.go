package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/md-rashed-zaman/slotdesk/libs/httpx"
	"github.com/md-rashed-zaman/slotdesk/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotdesk/services/booking-service/internal/service"
)

type createProviderRequest struct {
	Name         string `json:"name" validate:"required,max=120"`
	BusinessName string `json:"business_name" validate:"required,max=160"`
	BusinessType string `json:"business_type" validate:"omitempty,oneof=medical sports beauty education other"`
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required,min=8"`
	Slug         string `json:"slug" validate:"omitempty,max=80"`
	TrialDays    int    `json:"trial_days" validate:"omitempty,min=1,max=365"`
}

type activationRequest struct {
	Active *bool `json:"active" validate:"required"`
}

type trialsResponse struct {
	ExpiringSoon []providerView `json:"expiring_soon"`
	Expired      []providerView `json:"expired"`
}

func (h *Handler) ListProviders(w http.ResponseWriter, r *http.Request) {
	providers, err := h.svc.ListProviders(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, list(toProviderViews(providers, h.now())))
}

func (h *Handler) CreateProvider(w http.ResponseWriter, r *http.Request) {
	var req createProviderRequest
	if !h.decode(w, r, &req) {
		return
	}
	p, err := h.svc.CreateProvider(r.Context(), service.NewProviderRequest{
		Name:         req.Name,
		BusinessName: req.BusinessName,
		BusinessType: model.BusinessType(req.BusinessType),
		Email:        req.Email,
		Password:     req.Password,
		Slug:         req.Slug,
		TrialDays:    req.TrialDays,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toProviderView(p, h.now()))
}

func (h *Handler) Trials(w http.ResponseWriter, r *http.Request) {
	dash, err := h.svc.Trials(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	now := h.now()
	views := func(entries []service.TrialEntry) []providerView {
		out := make([]providerView, 0, len(entries))
		for _, e := range entries {
			out = append(out, toProviderView(e.Provider, now))
		}
		return out
	}
	httpx.WriteJSON(w, http.StatusOK, trialsResponse{ExpiringSoon: views(dash.ExpiringSoon), Expired: views(dash.Expired)})
}

func (h *Handler) SetActivation(w http.ResponseWriter, r *http.Request) {
	var req activationRequest
	if !h.decode(w, r, &req) {
		return
	}
	p, err := h.svc.SetActive(r.Context(), mux.Vars(r)["id"], *req.Active)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toProviderView(p, h.now()))
}
