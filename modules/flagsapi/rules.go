package flagsapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/flagkit/pkg/feature"
)

func setRuleETag(w http.ResponseWriter, r feature.Rule) {
	w.Header().Set("ETag", r.Fingerprint())
}

func (s *Service) listRules(w http.ResponseWriter, r *http.Request) {
	rules, err := s.manager.ListRules(r.Context(), chi.URLParam(r, "featureID"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, rules)
}

func (s *Service) createRule(w http.ResponseWriter, r *http.Request) {
	var in feature.RuleInput
	if err := decodeBody(r, &in); err != nil {
		respondError(w, err)
		return
	}

	rule, err := s.manager.CreateRule(r.Context(), chi.URLParam(r, "featureID"), in)
	if err != nil {
		respondError(w, err)
		return
	}
	setRuleETag(w, rule)
	respondData(w, http.StatusCreated, rule)
}

func (s *Service) getRule(w http.ResponseWriter, r *http.Request) {
	rule, err := s.manager.GetRule(r.Context(), chi.URLParam(r, "featureID"), chi.URLParam(r, "ruleID"))
	if err != nil {
		respondError(w, err)
		return
	}
	setRuleETag(w, rule)
	respondData(w, http.StatusOK, rule)
}

func (s *Service) updateRule(w http.ResponseWriter, r *http.Request) {
	var patch feature.RulePatch
	if err := decodeBody(r, &patch); err != nil {
		respondError(w, err)
		return
	}

	rule, err := s.manager.UpdateRule(r.Context(),
		chi.URLParam(r, "featureID"), chi.URLParam(r, "ruleID"), patch, ifMatchTokens(r)...)
	if err != nil {
		respondError(w, err)
		return
	}
	setRuleETag(w, rule)
	respondData(w, http.StatusOK, rule)
}

func (s *Service) disableRule(w http.ResponseWriter, r *http.Request) {
	rule, err := s.manager.DisableRule(r.Context(), chi.URLParam(r, "featureID"), chi.URLParam(r, "ruleID"))
	if err != nil {
		respondError(w, err)
		return
	}
	setRuleETag(w, rule)
	respondData(w, http.StatusOK, rule)
}

func (s *Service) deleteRule(w http.ResponseWriter, r *http.Request) {
	err := s.manager.DeleteRule(r.Context(), chi.URLParam(r, "featureID"), chi.URLParam(r, "ruleID"))
	if err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
