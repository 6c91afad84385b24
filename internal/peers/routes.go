package peers

import (
	"net/http"

	"github.com/gorilla/mux"
)

func RegisterRoutes(r *mux.Router, h *Handler) {
	sub := r.PathPrefix("/api").Subrouter()
	sub.HandleFunc("/peers", h.Create).Methods(http.MethodPost)
	sub.HandleFunc("/peers", h.List).Methods(http.MethodGet)
	sub.HandleFunc("/peers/{id:[0-9]+}", h.Get).Methods(http.MethodGet)
	sub.HandleFunc("/peers/{id:[0-9]+}", h.Delete).Methods(http.MethodDelete)
	sub.HandleFunc("/peers/{id:[0-9]+}/toggle", h.Toggle).Methods(http.MethodPost)
	sub.HandleFunc("/stats", h.Stats).Methods(http.MethodGet)
	sub.HandleFunc("/events", h.Events).Methods(http.MethodGet)
}
