package server

import (
	"net/http"

	"github.com/onsiteclub/onsite-eagle-sub003/internal/model"
)

// handleListDeficiencies handles GET /v1/lots/{lot}/deficiencies?status=open|resolved.
func (s *GateCheckServer) handleListDeficiencies(w http.ResponseWriter, r *http.Request) {
	status := model.DeficiencyStatus(r.URL.Query().Get("status"))
	defs, err := s.svc.ListDeficiencies(r.Context(), r.PathValue("lot"), status)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if defs == nil {
		defs = []*model.Deficiency{}
	}
	writeJSON(w, http.StatusOK, defs)
}

// handleGetDeficiency handles GET /v1/deficiencies/{id}.
func (s *GateCheckServer) handleGetDeficiency(w http.ResponseWriter, r *http.Request) {
	d, err := s.svc.GetDeficiency(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

type resolveDeficiencyInput struct {
	Actor      string `json:"actor"`
	Resolution string `json:"resolution"`
}

// handleResolveDeficiency handles POST /v1/deficiencies/{id}/resolve.
func (s *GateCheckServer) handleResolveDeficiency(w http.ResponseWriter, r *http.Request) {
	var in resolveDeficiencyInput
	if err := decodeBody(w, r, &in, false); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	d, err := s.svc.ResolveDeficiency(r.Context(), r.PathValue("id"), in.Actor, in.Resolution)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.touch(in.Actor, "resolve_deficiency", nil)
	writeJSON(w, http.StatusOK, d)
}
