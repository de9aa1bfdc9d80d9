package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/md-rashed-zaman/slotdesk/libs/auth"
	"github.com/md-rashed-zaman/slotdesk/libs/httpx"
)

// Routes mounts the booking API on r. publicLimit, when set, guards the
// unauthenticated customer routes and login.
func (h *Handler) Routes(r *mux.Router, tokens *auth.Issuer, publicLimit httpx.Middleware) {
	api := r.PathPrefix("/api/v1").Subrouter()

	pub := api.PathPrefix("/public").Subrouter()
	login := api.PathPrefix("/auth").Subrouter()
	if publicLimit != nil {
		pub.Use(mux.MiddlewareFunc(publicLimit))
		login.Use(mux.MiddlewareFunc(publicLimit))
	}
	pub.HandleFunc("/providers/{slug}", h.PublicProvider).Methods(http.MethodGet)
	pub.HandleFunc("/providers/{slug}/slots", h.Slots).Methods(http.MethodGet)
	pub.HandleFunc("/providers/{slug}/appointments", h.Book).Methods(http.MethodPost)
	pub.HandleFunc("/providers/{slug}/appointments", h.MyBookings).Methods(http.MethodGet)
	login.HandleFunc("/login", h.Login).Methods(http.MethodPost)

	prov := api.PathPrefix("/provider").Subrouter()
	prov.Use(mux.MiddlewareFunc(auth.RequireRole(tokens, auth.RoleProvider)))
	prov.HandleFunc("/appointments", h.ProviderAppointments).Methods(http.MethodGet)
	prov.HandleFunc("/appointments/{id}/status", h.SetStatus).Methods(http.MethodPost)
	prov.HandleFunc("/appointments/{id}/reminder", h.SendReminder).Methods(http.MethodPost)
	prov.HandleFunc("/clients", h.Clients).Methods(http.MethodGet)
	prov.HandleFunc("/clients/{phone}/appointments", h.ClientHistory).Methods(http.MethodGet)
	prov.HandleFunc("/settings", h.Settings).Methods(http.MethodGet)
	prov.HandleFunc("/settings", h.UpdateSettings).Methods(http.MethodPut)

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(mux.MiddlewareFunc(auth.RequireRole(tokens, auth.RoleAdmin)))
	admin.HandleFunc("/providers", h.ListProviders).Methods(http.MethodGet)
	admin.HandleFunc("/providers", h.CreateProvider).Methods(http.MethodPost)
	admin.HandleFunc("/providers/trials", h.Trials).Methods(http.MethodGet)
	admin.HandleFunc("/providers/{id}/activation", h.SetActivation).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
}
