package service

import (
	"context"

	"ForecastArena/internal/domain/models"
	domrepo "ForecastArena/internal/domain/repository"
)

// PredictionSource produces one probability per round for a contract.
// Implementations wrap external callers (model-serving endpoints); the
// core never retries a failed call.
type PredictionSource interface {
	ModelID() string
	Predict(ctx context.Context, key domrepo.ContractKey, req models.PredictionRequest) (models.ModelPrediction, error)
}
