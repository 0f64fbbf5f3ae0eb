package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/onsiteclub/onsite-eagle-sub003/internal/model"
	"github.com/onsiteclub/onsite-eagle-sub003/internal/presence"
)

// defaultRosterStale hides inspectors inactive for longer than this.
const defaultRosterStale = 30 * time.Minute

// handleInspectorRoster handles GET /v1/inspectors/roster.
// stale_threshold_secs=0 includes every tracked inspector.
func (s *GateCheckServer) handleInspectorRoster(w http.ResponseWriter, r *http.Request) {
	if s.Presence == nil {
		writeJSON(w, http.StatusOK, map[string]any{"inspectors": []presence.Entry{}})
		return
	}

	stale := defaultRosterStale
	if v := r.URL.Query().Get("stale_threshold_secs"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil || secs < 0 {
			writeError(w, http.StatusBadRequest, model.CodeInvalidInput, "stale_threshold_secs must be a non-negative integer")
			return
		}
		stale = time.Duration(secs) * time.Second
	}

	writeJSON(w, http.StatusOK, map[string]any{"inspectors": s.Presence.Roster(stale)})
}
