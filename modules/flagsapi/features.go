package flagsapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/flagkit/pkg/feature"
)

// ifMatchTokens splits an If-Match header into individual fingerprints.
// Guarded updates fail with 412 when none matches the current entity.
func ifMatchTokens(r *http.Request) []string {
	header := r.Header.Get("If-Match")
	if header == "" {
		return nil
	}
	parts := strings.Split(header, ",")
	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tokens = append(tokens, p)
		}
	}
	return tokens
}

func setFeatureETag(w http.ResponseWriter, f feature.Feature) {
	w.Header().Set("ETag", f.Fingerprint())
}

func (s *Service) listFeatures(w http.ResponseWriter, r *http.Request) {
	features, err := s.manager.ListFeatures(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, features)
}

func (s *Service) createFeature(w http.ResponseWriter, r *http.Request) {
	var in feature.CreateFeatureInput
	if err := decodeBody(r, &in); err != nil {
		respondError(w, err)
		return
	}

	f, err := s.manager.CreateFeature(r.Context(), in)
	if err != nil {
		respondError(w, err)
		return
	}
	setFeatureETag(w, f)
	respondData(w, http.StatusCreated, f)
}

func (s *Service) getFeature(w http.ResponseWriter, r *http.Request) {
	f, err := s.manager.GetFeature(r.Context(), chi.URLParam(r, "featureID"))
	if err != nil {
		respondError(w, err)
		return
	}
	setFeatureETag(w, f)
	respondData(w, http.StatusOK, f)
}

func (s *Service) updateFeature(w http.ResponseWriter, r *http.Request) {
	var patch feature.FeaturePatch
	if err := decodeBody(r, &patch); err != nil {
		respondError(w, err)
		return
	}

	f, err := s.manager.UpdateFeature(r.Context(), chi.URLParam(r, "featureID"), patch, ifMatchTokens(r)...)
	if err != nil {
		respondError(w, err)
		return
	}
	setFeatureETag(w, f)
	respondData(w, http.StatusOK, f)
}

func (s *Service) archiveFeature(w http.ResponseWriter, r *http.Request) {
	f, err := s.manager.ArchiveFeature(r.Context(), chi.URLParam(r, "featureID"))
	if err != nil {
		respondError(w, err)
		return
	}
	setFeatureETag(w, f)
	respondData(w, http.StatusOK, f)
}
