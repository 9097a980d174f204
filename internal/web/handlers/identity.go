package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/bEiGeOnE78/DIY-Photo-Tool/internal/database"
	"github.com/bEiGeOnE78/DIY-Photo-Tool/internal/identity"
)

// IdentityHandler serves person and face labeling endpoints.
type IdentityHandler struct {
	svc   *identity.Service
	store database.Store
}

// NewIdentityHandler creates the identity handler.
func NewIdentityHandler(svc *identity.Service, store database.Store) *IdentityHandler {
	return &IdentityHandler{svc: svc, store: store}
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}

// Stats returns the aggregate view, recomputed per request.
func (h *IdentityHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// ListPersons returns all persons with their aggregates.
func (h *IdentityHandler) ListPersons(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.PersonStats(r.Context())
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"persons": stats})
}

// PersonFaces returns the faces assigned to one person.
func (h *IdentityHandler) PersonFaces(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid person id")
		return
	}

	if _, err := h.store.GetPerson(r.Context(), id); err != nil {
		if errors.Is(err, database.ErrPersonNotFound) {
			respondError(w, http.StatusNotFound, "person not found")
			return
		}
		respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	faces, err := h.store.ListByPerson(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"faces": faces})
}

type renameRequest struct {
	Name string `json:"name"`
}

// RenamePerson names a person, merging with an existing person carrying the
// same normalized name.
func (h *IdentityHandler) RenamePerson(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid person id")
		return
	}

	var req renameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	survivor, err := h.svc.Rename(r.Context(), id, req.Name)
	if err != nil {
		if errors.Is(err, database.ErrPersonNotFound) {
			respondError(w, http.StatusNotFound, "person not found")
			return
		}
		respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"person_id": survivor})
}

// DeletePerson removes one person. Member faces keep their rows; their
// assignment is cleared.
func (h *IdentityHandler) DeletePerson(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid person id")
		return
	}

	if err := h.store.DeletePerson(r.Context(), id); err != nil {
		if errors.Is(err, database.ErrPersonNotFound) {
			respondError(w, http.StatusNotFound, "person not found")
			return
		}
		respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

// DeleteUnconfirmedPersons removes persons without confirmed faces.
func (h *IdentityHandler) DeleteUnconfirmedPersons(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.svc.DeleteUnconfirmedPersons(r.Context())
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"deleted": deleted})
}

type confirmRequest struct {
	PersonID int64  `json:"person_id,omitempty"`
	Name     string `json:"name,omitempty"`
	Force    bool   `json:"force,omitempty"`
}

// ConfirmFace confirms a face to a person, given either a person ID or a
// name. Confirming an already confirmed face requires force.
func (h *IdentityHandler) ConfirmFace(w http.ResponseWriter, r *http.Request) {
	faceID, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid face id")
		return
	}

	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	var personID int64
	var err error
	switch {
	case req.Name != "":
		personID, err = h.svc.ConfirmAs(r.Context(), faceID, req.Name, req.Force)
	case req.PersonID > 0:
		personID = req.PersonID
		err = h.svc.Confirm(r.Context(), faceID, req.PersonID, req.Force)
	default:
		respondError(w, http.StatusBadRequest, "person_id or name required")
		return
	}

	if err != nil {
		switch {
		case errors.Is(err, database.ErrConfirmedFaceLocked):
			respondError(w, http.StatusConflict, "face already confirmed; pass force to relabel")
		case errors.Is(err, database.ErrFaceNotFound):
			respondError(w, http.StatusNotFound, "face not found")
		case errors.Is(err, database.ErrPersonNotFound):
			respondError(w, http.StatusNotFound, "person not found")
		default:
			respondError(w, http.StatusServiceUnavailable, err.Error())
		}
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"face_id": faceID, "person_id": personID})
}

// SimilarFaces returns the approximate nearest neighbors of a face.
func (h *IdentityHandler) SimilarFaces(w http.ResponseWriter, r *http.Request) {
	faceID, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid face id")
		return
	}

	k := 10
	if s := r.URL.Query().Get("k"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 100 {
			k = n
		}
	}

	similar, err := h.svc.SimilarFaces(r.Context(), faceID, k)
	if err != nil {
		if errors.Is(err, database.ErrFaceNotFound) {
			respondError(w, http.StatusNotFound, "face not found")
			return
		}
		respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	type neighbor struct {
		Face     database.StoredFace `json:"face"`
		Distance float64             `json:"distance"`
	}
	out := make([]neighbor, len(similar))
	for i, s := range similar {
		out[i] = neighbor{Face: s.Face, Distance: s.Distance}
	}
	respondJSON(w, http.StatusOK, map[string]any{"similar": out})
}

// DeleteUnconfirmedFaces removes every unconfirmed face.
func (h *IdentityHandler) DeleteUnconfirmedFaces(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.svc.DeleteUnconfirmedFaces(r.Context())
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"deleted": deleted})
}
