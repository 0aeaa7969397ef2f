package script

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts the script management endpoints.
func RegisterRoutes(r chi.Router, store *Store) {
	r.Post("/api/scripts", handleSave(store))
	r.Get("/api/scripts/{userID}", handleList(store))
}

func handleSave(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var sc Script
		if err := json.NewDecoder(r.Body).Decode(&sc); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if sc.UserID == "" {
			http.Error(w, "user_id is required", http.StatusBadRequest)
			return
		}

		saved, err := store.Save(r.Context(), &sc)
		if err != nil {
			log.Printf("saving script: %v", err)
			http.Error(w, "failed to save script", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(saved)
	}
}

func handleList(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")

		scripts, err := store.List(r.Context(), userID)
		if err != nil {
			log.Printf("listing scripts: %v", err)
			http.Error(w, "failed to list scripts", http.StatusInternalServerError)
			return
		}
		if scripts == nil {
			scripts = []*Script{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(scripts)
	}
}
