package httpapi

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/ayushkr19/charades-backend/internal/store"
)

type rosterRequest struct {
	MeetingID  string `json:"meetingId"`
	AttendeeID string `json:"attendeeId"`
	Name       string `json:"name"`
}

// PutRosterEntry records an attendee's display name at room join time.
// The message router only ever reads these rows.
func PutRosterEntry(directory *store.Directory, log *zap.Logger) http.HandlerFunc {
	log = log.Named("roster")
	return func(w http.ResponseWriter, r *http.Request) {
		var req rosterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if req.MeetingID == "" || req.AttendeeID == "" || req.Name == "" {
			http.Error(w, "meetingId, attendeeId and name are required", http.StatusBadRequest)
			return
		}
		if err := directory.PutName(r.Context(), req.MeetingID, req.AttendeeID, req.Name); err != nil {
			log.Error("put name", zap.Error(err))
			http.Error(w, "failed to store name", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
