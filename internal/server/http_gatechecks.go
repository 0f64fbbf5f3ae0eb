package server

import (
	"net/http"
	"time"

	"github.com/onsiteclub/onsite-eagle-sub003/internal/gatecheck"
	"github.com/onsiteclub/onsite-eagle-sub003/internal/model"
)

var timeSince = time.Since

// transitionInfo is one entry of GET /v1/transitions.
type transitionInfo struct {
	Transition model.Transition `json:"transition"`
	Items      int              `json:"items"`
	Blocking   int              `json:"blocking"`
}

// handleListTransitions handles GET /v1/transitions.
func (s *GateCheckServer) handleListTransitions(w http.ResponseWriter, r *http.Request) {
	out := make([]transitionInfo, 0, len(model.Transitions))
	for _, tr := range model.Transitions {
		items, err := s.svc.GetTemplateItems(r.Context(), tr)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		info := transitionInfo{Transition: tr, Items: len(items)}
		for _, it := range items {
			if it.IsBlocking {
				info.Blocking++
			}
		}
		out = append(out, info)
	}
	writeJSON(w, http.StatusOK, out)
}

// handleGetTemplate handles GET /v1/transitions/{transition}/template.
func (s *GateCheckServer) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	items, err := s.svc.GetTemplateItems(r.Context(), model.Transition(r.PathValue("transition")))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if items == nil {
		items = []*model.TemplateItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

// handleGetLatestGateCheck handles GET /v1/lots/{lot}/gate-checks/{transition}/latest.
// Responds 200 with a JSON null when the lot never started this transition.
func (s *GateCheckServer) handleGetLatestGateCheck(w http.ResponseWriter, r *http.Request) {
	gc, err := s.svc.GetLatestGateCheck(r.Context(), r.PathValue("lot"), model.Transition(r.PathValue("transition")))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, gc)
}

// handleListGateChecks handles GET /v1/lots/{lot}/gate-checks/{transition}.
func (s *GateCheckServer) handleListGateChecks(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	gcs, err := s.svc.ListGateChecks(r.Context(), r.PathValue("lot"), model.Transition(r.PathValue("transition")), limit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if gcs == nil {
		gcs = []*model.GateCheck{}
	}
	writeJSON(w, http.StatusOK, gcs)
}

type startGateCheckInput struct {
	Actor string `json:"actor"`
}

// handleStartGateCheck handles POST /v1/lots/{lot}/gate-checks/{transition}.
func (s *GateCheckServer) handleStartGateCheck(w http.ResponseWriter, r *http.Request) {
	var in startGateCheckInput
	if err := decodeBody(w, r, &in, false); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	gc, err := s.svc.StartGateCheck(r.Context(), r.PathValue("lot"), model.Transition(r.PathValue("transition")), in.Actor)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.touch(in.Actor, "start", gc)
	writeJSON(w, http.StatusCreated, gc)
}

// handleGetGateCheck handles GET /v1/gate-checks/{id}.
func (s *GateCheckServer) handleGetGateCheck(w http.ResponseWriter, r *http.Request) {
	gc, err := s.svc.GetGateCheck(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, gc)
}

type updateItemInput struct {
	Result   model.ItemResult `json:"result"`
	Notes    *string          `json:"notes"`
	PhotoURL *string          `json:"photo_url"`
	Actor    string           `json:"actor"`
}

// handleUpdateGateCheckItem handles PATCH /v1/gate-check-items/{id}.
func (s *GateCheckServer) handleUpdateGateCheckItem(w http.ResponseWriter, r *http.Request) {
	var in updateItemInput
	if err := decodeBody(w, r, &in, false); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	item, err := s.svc.UpdateGateCheckItem(r.Context(), gatecheck.UpdateItemRequest{
		ItemID:   r.PathValue("id"),
		Result:   in.Result,
		Notes:    in.Notes,
		PhotoURL: in.PhotoURL,
		Actor:    in.Actor,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.touchItem(in.Actor, item)
	writeJSON(w, http.StatusOK, item)
}

type completeGateCheckInput struct {
	Actor string `json:"actor"`
}

// handleCompleteGateCheck handles POST /v1/gate-checks/{id}/complete.
// The body is optional.
func (s *GateCheckServer) handleCompleteGateCheck(w http.ResponseWriter, r *http.Request) {
	var in completeGateCheckInput
	if err := decodeBody(w, r, &in, true); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	gc, err := s.svc.CompleteGateCheck(r.Context(), r.PathValue("id"), in.Actor)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.touch(in.Actor, "complete", gc)
	writeJSON(w, http.StatusOK, gc)
}

type cancelGateCheckInput struct {
	Actor  string `json:"actor"`
	Reason string `json:"reason"`
}

// handleCancelGateCheck handles POST /v1/gate-checks/{id}/cancel.
func (s *GateCheckServer) handleCancelGateCheck(w http.ResponseWriter, r *http.Request) {
	var in cancelGateCheckInput
	if err := decodeBody(w, r, &in, false); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	gc, err := s.svc.CancelGateCheck(r.Context(), r.PathValue("id"), in.Actor, in.Reason)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.touch(in.Actor, "cancel", gc)
	writeJSON(w, http.StatusOK, gc)
}

// handleGetEvents handles GET /v1/gate-checks/{id}/events.
func (s *GateCheckServer) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	evts, err := s.svc.GetEvents(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if evts == nil {
		evts = []*model.Event{}
	}
	writeJSON(w, http.StatusOK, evts)
}
