package predictors

import (
	"context"
	"fmt"
	"time"

	"ForecastArena/internal/domain/models"
	domrepo "ForecastArena/internal/domain/repository"
	domsvc "ForecastArena/internal/domain/service"
	svcmetrics "ForecastArena/internal/service/metrics"
	"ForecastArena/internal/service/ratelimit"
)

// HTTPPredictionSource asks one model-serving endpoint for a
// probability each round. Endpoints may answer either with a bare
// probability or with an {outcome, confidence} pair; both are
// normalized to a probability here.
type HTTPPredictionSource struct {
	id       string
	base     *HTTPServiceBase
	attempts int
	limiter  *ratelimit.Limiter
	rps      float64
}

type Option func(*HTTPPredictionSource)

// WithRetry sets how many attempts one round's call may use.
func WithRetry(attempts int) Option {
	return func(s *HTTPPredictionSource) {
		if attempts > 0 {
			s.attempts = attempts
		}
	}
}

// WithRateLimit caps calls per second to the endpoint.
func WithRateLimit(l *ratelimit.Limiter, rps float64) Option {
	return func(s *HTTPPredictionSource) {
		s.limiter = l
		s.rps = rps
	}
}

func NewHTTPPredictionSource(id, baseURL string, timeout time.Duration, opts ...Option) *HTTPPredictionSource {
	s := &HTTPPredictionSource{
		id:       id,
		base:     NewHTTPServiceBase(baseURL, timeout),
		attempts: 1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *HTTPPredictionSource) ModelID() string { return s.id }

type predictReq struct {
	Symbol   string `json:"symbol"`
	Contract string `json:"contract"`
	Round    int    `json:"round"`
	SnapTime string `json:"snap_time"`
}

type predictResp struct {
	Probability *float64 `json:"probability,omitempty"`
	Outcome     *bool    `json:"outcome,omitempty"`
	Confidence  float64  `json:"confidence,omitempty"`
}

func (s *HTTPPredictionSource) Predict(ctx context.Context, key domrepo.ContractKey, req models.PredictionRequest) (models.ModelPrediction, error) {
	if s.limiter != nil && !s.limiter.Allow(s.id, s.rps, s.rps) {
		svcmetrics.PredictorErrors.WithLabelValues(s.id).Inc()
		return models.FailedPrediction("rate_limited"), nil
	}

	start := time.Now()
	var resp predictResp
	err := s.base.PostJSONWithRetry(ctx, "/predict", predictReq{
		Symbol:   req.Symbol,
		Contract: key.String(),
		Round:    req.Round,
		SnapTime: req.SnapTime.UTC().Format(time.RFC3339),
	}, &resp, s.attempts)
	svcmetrics.PredictorLatency.WithLabelValues(s.id).Observe(time.Since(start).Seconds())
	if err != nil {
		svcmetrics.PredictorErrors.WithLabelValues(s.id).Inc()
		return models.ModelPrediction{}, fmt.Errorf("predict %s: %w", s.id, err)
	}

	p, err := normalize(resp)
	if err != nil {
		svcmetrics.PredictorErrors.WithLabelValues(s.id).Inc()
		return models.ModelPrediction{}, fmt.Errorf("predict %s: %w", s.id, err)
	}
	return models.ModelPrediction{Probability: p}, nil
}

func normalize(r predictResp) (float64, error) {
	switch {
	case r.Probability != nil:
		p := *r.Probability
		if p < 0 || p > 1 {
			return 0, fmt.Errorf("probability %v out of [0,1]", p)
		}
		return p, nil
	case r.Outcome != nil:
		if r.Confidence < 0.5 || r.Confidence > 1 {
			return 0, fmt.Errorf("confidence %v out of [0.5,1]", r.Confidence)
		}
		return models.ProbabilityFromOutcome(*r.Outcome, r.Confidence), nil
	default:
		return 0, fmt.Errorf("response carries neither probability nor outcome")
	}
}

var _ domsvc.PredictionSource = (*HTTPPredictionSource)(nil)
