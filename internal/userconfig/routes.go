package userconfig

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts the user configuration endpoints.
func RegisterRoutes(r chi.Router, store *Store) {
	r.Post("/api/user/config", handleUpsert(store))
	r.Get("/api/user/config/{userID}", handleGet(store))
}

func handleUpsert(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			UserID      string `json:"user_id"`
			PhoneNumber string `json:"phone_number"`
			AccountSID  string `json:"account_sid"`
			AuthToken   string `json:"auth_token"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if body.UserID == "" {
			http.Error(w, "user_id is required", http.StatusBadRequest)
			return
		}

		uc := &UserConfig{
			UserID:      body.UserID,
			PhoneNumber: body.PhoneNumber,
			AccountSID:  body.AccountSID,
			AuthToken:   body.AuthToken,
		}
		if err := store.Upsert(r.Context(), uc); err != nil {
			log.Printf("upserting user config: %v", err)
			http.Error(w, "failed to save configuration", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "saved"})
	}
}

func handleGet(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")

		uc, err := store.Get(r.Context(), userID)
		if err != nil {
			log.Printf("reading user config: %v", err)
			http.Error(w, "failed to read configuration", http.StatusInternalServerError)
			return
		}
		if uc == nil {
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(uc)
	}
}
