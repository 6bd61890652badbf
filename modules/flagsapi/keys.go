package flagsapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type createKeyRequest struct {
	Name string `json:"name"`
}

func (s *Service) listKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := s.keys.List(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, keys)
}

func (s *Service) createKey(w http.ResponseWriter, r *http.Request) {
	var req createKeyRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, err)
		return
	}

	key, err := s.keys.Create(r.Context(), req.Name)
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, http.StatusCreated, key)
}

func (s *Service) rotateKey(w http.ResponseWriter, r *http.Request) {
	key, err := s.keys.Rotate(r.Context(), chi.URLParam(r, "keyID"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, http.StatusCreated, key)
}

func (s *Service) revokeKey(w http.ResponseWriter, r *http.Request) {
	if err := s.keys.Revoke(r.Context(), chi.URLParam(r, "keyID")); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
