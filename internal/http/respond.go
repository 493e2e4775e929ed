package httpx

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/surajM3157/myAPI/internal/domain"
)

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// writeJSON writes a JSON response with status code.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeData sends a success envelope.
func writeData(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, envelope{Success: true, Message: message, Data: data})
}

// writeError sends a failure envelope.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{Success: false, Message: msg})
}

// userPayload shapes an account for responses. The credential hash never
// leaves the store boundary; the session token is included only where the
// operation surface calls for it.
func userPayload(u *domain.User, withToken bool) map[string]any {
	payload := map[string]any{
		"id":        u.ID,
		"name":      u.Name,
		"email":     u.Email,
		"age":       u.Age,
		"createdAt": u.CreatedAt.UTC().Format(time.RFC3339),
		"updatedAt": u.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if withToken && u.SessionToken != nil {
		payload["token"] = *u.SessionToken
	}
	return payload
}

func userListPayload(users []domain.User) []map[string]any {
	out := make([]map[string]any, 0, len(users))
	for i := range users {
		out = append(out, userPayload(&users[i], false))
	}
	return out
}
