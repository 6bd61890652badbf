package flagsapi

import (
	"errors"
	"net/http"

	"github.com/dmitrymomot/flagkit/pkg/conditions"
	"github.com/dmitrymomot/flagkit/pkg/evaluator"
	"github.com/dmitrymomot/flagkit/pkg/feature"
)

type evaluateRequest struct {
	FeatureKey  string              `json:"featureKey"`
	Environment feature.Environment `json:"environment"`
	Subject     conditions.Subject  `json:"subject"`
}

func (req evaluateRequest) validate() error {
	if req.FeatureKey == "" {
		return errors.Join(errBadRequest, errors.New("featureKey is required"))
	}
	if !req.Environment.Valid() {
		return errors.Join(errBadRequest, errors.New("unknown environment"))
	}
	return req.Subject.Validate()
}

type evaluationResponse struct {
	FeatureKey   string              `json:"featureKey"`
	Environment  feature.Environment `json:"environment"`
	SubjectKey   string              `json:"subjectKey"`
	Decision     evaluator.Decision  `json:"decision"`
	DecisionHash uint64              `json:"decisionHash"`
	CacheHit     bool                `json:"cacheHit"`
}

func toEvaluationResponse(req evaluateRequest, res evaluator.Result) evaluationResponse {
	return evaluationResponse{
		FeatureKey:   req.FeatureKey,
		Environment:  req.Environment,
		SubjectKey:   req.Subject.Key,
		Decision:     res.Decision,
		DecisionHash: res.DecisionHash,
		CacheHit:     res.CacheHit,
	}
}

func (s *Service) evaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := req.validate(); err != nil {
		respondError(w, err)
		return
	}

	res := s.engine.Evaluate(r.Context(), req.FeatureKey, req.Environment, req.Subject)
	respondData(w, http.StatusOK, toEvaluationResponse(req, res))
}

type previewRequest struct {
	FeatureKey  string               `json:"featureKey"`
	Environment feature.Environment  `json:"environment"`
	Subjects    []conditions.Subject `json:"subjects"`
}

const previewSubjectLimit = 100

// preview evaluates a batch of subjects in one call so operators can see
// how a rollout would land before shipping it. Capped to keep requests
// bounded.
func (s *Service) preview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.FeatureKey == "" {
		respondError(w, errors.Join(errBadRequest, errors.New("featureKey is required")))
		return
	}
	if !req.Environment.Valid() {
		respondError(w, errors.Join(errBadRequest, errors.New("unknown environment")))
		return
	}
	if len(req.Subjects) == 0 || len(req.Subjects) > previewSubjectLimit {
		respondError(w, errors.Join(errBadRequest, errors.New("subjects must contain between 1 and 100 entries")))
		return
	}
	for _, subject := range req.Subjects {
		if err := subject.Validate(); err != nil {
			respondError(w, err)
			return
		}
	}

	results := make([]evaluationResponse, 0, len(req.Subjects))
	for _, subject := range req.Subjects {
		res := s.engine.Evaluate(r.Context(), req.FeatureKey, req.Environment, subject)
		results = append(results, toEvaluationResponse(evaluateRequest{
			FeatureKey:  req.FeatureKey,
			Environment: req.Environment,
			Subject:     subject,
		}, res))
	}
	respondJSON(w, http.StatusOK, envelope{
		Data: results,
		Meta: map[string]any{"count": len(results)},
	})
}
