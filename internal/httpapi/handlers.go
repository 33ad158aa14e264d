package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/clusterdns/zoned/internal/zoneactor"
	"github.com/clusterdns/zoned/internal/zonestore"
)

// Cache is the subset of zoneactor.Cache the HTTP API depends on.
type Cache interface {
	Fetch(ctx context.Context, domain string) (zonestore.Zone, error)
	FetchLocal(ctx context.Context, domain string) (zonestore.Zone, error)
	Create(ctx context.Context, domain string, data zonestore.Zone) error
	Update(ctx context.Context, domain string, data zonestore.Zone, expectedVersion int) error
	Put(ctx context.Context, domain string, data zonestore.Zone) error
	Delete(ctx context.Context, domain string) error
	ApplyChange(ctx context.Context, action, domain string, data *zonestore.Zone) error
}

type statusBody struct {
	Status  string `json:"status"`
	Version int    `json:"version,omitempty"`
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, reason string) {
	writeJSON(w, status, errorBody{Error: reason})
}

// writeOpError maps a cache/store error to its §7 taxonomy status code.
// The taxonomy only names 401/400/404/422/500: a version conflict is a
// client-supplied-state problem, not a resource collision, so it maps
// to 422 alongside validation failures rather than to 409.
func writeOpError(w http.ResponseWriter, err error) {
	var validation *zonestore.ValidationError
	var conflict *zoneactor.ConflictError

	switch {
	case errors.Is(err, zonestore.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &validation):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &conflict):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleGetZone(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	zone, err := s.cache.Fetch(r.Context(), name)
	if err != nil {
		writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, zone)
}

func (s *Server) handlePutZone(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	var zone zonestore.Zone
	if err := json.NewDecoder(r.Body).Decode(&zone); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}
	if zone.Name != "" && zone.Name != name {
		writeError(w, http.StatusBadRequest, "name in URL and body must match")
		return
	}
	zone.Name = name

	_, existedErr := s.cache.FetchLocal(r.Context(), name)
	existed := existedErr == nil

	if err := s.cache.Put(r.Context(), name, zone); err != nil {
		writeOpError(w, err)
		return
	}

	if existed {
		writeJSON(w, http.StatusOK, statusBody{Status: "updated"})
	} else {
		writeJSON(w, http.StatusCreated, statusBody{Status: "created"})
	}
}

func (s *Server) handleCreateZone(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	var zone zonestore.Zone
	if err := json.NewDecoder(r.Body).Decode(&zone); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}
	if zone.Name != "" && zone.Name != name {
		writeError(w, http.StatusBadRequest, "name in URL and body must match")
		return
	}
	zone.Name = name

	if err := s.cache.Create(r.Context(), name, zone); err != nil {
		writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, statusBody{Status: "created"})
}

func (s *Server) handlePatchZone(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	var body struct {
		zonestore.Zone
		Version int `json:"version"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}
	if body.Name != "" && body.Name != name {
		writeError(w, http.StatusBadRequest, "name in URL and body must match")
		return
	}
	body.Zone.Name = name

	if err := s.cache.Update(r.Context(), name, body.Zone, body.Version); err != nil {
		writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusBody{Status: "updated", Version: body.Version + 1})
}

func (s *Server) handleDeleteZone(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	if err := s.cache.Delete(r.Context(), name); err != nil {
		writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusBody{Status: "ok"})
}

// internalApplyRequest/Response mirror replication.applyRequest/Response
// exactly: this handler is the receiving end of the peer RPC.
type internalApplyRequest struct {
	Action string          `json:"action"`
	Domain string          `json:"domain"`
	Zone   *zonestore.Zone `json:"zone,omitempty"`
}

type internalApplyResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

func (s *Server) handleInternalApply(w http.ResponseWriter, r *http.Request) {
	var req internalApplyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusOK, internalApplyResponse{OK: false, Error: "malformed request"})
		return
	}

	if err := s.cache.ApplyChange(r.Context(), req.Action, req.Domain, req.Zone); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{"action": req.Action, "domain": req.Domain}).
			Debug("internal apply failed")
		writeJSON(w, http.StatusOK, internalApplyResponse{OK: false, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, internalApplyResponse{OK: true})
}

type internalFetchRequest struct {
	Domain string `json:"domain"`
}

type internalFetchResponse struct {
	OK   bool            `json:"ok"`
	Zone *zonestore.Zone `json:"zone,omitempty"`
}

func (s *Server) handleInternalFetch(w http.ResponseWriter, r *http.Request) {
	var req internalFetchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusOK, internalFetchResponse{OK: false})
		return
	}

	zone, err := s.cache.FetchLocal(r.Context(), req.Domain)
	if err != nil {
		writeJSON(w, http.StatusOK, internalFetchResponse{OK: false})
		return
	}
	writeJSON(w, http.StatusOK, internalFetchResponse{OK: true, Zone: &zone})
}
