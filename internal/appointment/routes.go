package appointment

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts the appointment read endpoints.
func RegisterRoutes(r chi.Router, store *Store) {
	r.Get("/api/appointments/{userID}", handleList(store))
}

func handleList(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")

		appointments, err := store.ListByUser(r.Context(), userID)
		if err != nil {
			log.Printf("listing appointments: %v", err)
			http.Error(w, "failed to list appointments", http.StatusInternalServerError)
			return
		}
		if appointments == nil {
			appointments = []*Appointment{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(appointments)
	}
}
