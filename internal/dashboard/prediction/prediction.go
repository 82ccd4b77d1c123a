// Package prediction loads model predictions for a patient.
package prediction

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/lucasvrm/previso/internal/core/domain"
	"github.com/lucasvrm/previso/internal/infra/apiclient"
	"github.com/lucasvrm/previso/internal/infra/apiclient/apierr"
	"github.com/lucasvrm/previso/internal/infra/apiclient/classify"
	"github.com/lucasvrm/previso/internal/infra/apiclient/retry"
)

const (
	dailyPath         = "/predict/state"
	listPathPrefix    = "/data/predictions/"
	listMaxRetries    = 3
	defaultWindowDays = 3
)

// API is the subset of the API client the service needs.
type API interface {
	Get(ctx context.Context, path string, opts apiclient.Options) (json.RawMessage, error)
	Post(ctx context.Context, path string, body any, opts apiclient.Options) (json.RawMessage, error)
}

// DailyResult is the outcome of a daily prediction request.
type DailyResult struct {
	State      domain.PredictionState
	Prediction map[string]any
	Kind       classify.Kind // set when State is error
	Elapsed    time.Duration
}

// ListResult is the outcome of a predictions list request.
type ListResult struct {
	State       domain.PredictionState
	Predictions []domain.Prediction
	Kind        classify.Kind // set when State is error
	Elapsed     time.Duration
}

// Service wraps the prediction endpoints.
type Service struct {
	api API
}

// NewService creates a prediction service.
func NewService(api API) *Service {
	return &Service{api: api}
}

// Daily requests today's predicted state. Missing input yields no_data
// without a request. The endpoint is public and is not retried.
func (s *Service) Daily(ctx context.Context, patientID string, features map[string]any) (DailyResult, error) {
	if patientID == "" || len(features) == 0 {
		return DailyResult{State: domain.PredictionStateNoData}, nil
	}

	start := time.Now()
	body, err := s.api.Post(ctx, dailyPath, domain.DailyPredictionRequest{
		PatientID: patientID,
		Features:  features,
	}, apiclient.Options{RequireAuth: apiclient.Bool(false)})
	elapsed := time.Since(start)

	if err != nil {
		slog.Warn("Daily prediction failed", "patient_id", patientID, "error", err)
		return DailyResult{State: domain.PredictionStateError, Kind: kindOf(err), Elapsed: elapsed}, err
	}

	var prediction map[string]any
	if len(body) > 0 {
		if err := json.Unmarshal(body, &prediction); err != nil {
			derr := invalidResponse(err)
			return DailyResult{State: domain.PredictionStateError, Kind: derr.Kind, Elapsed: elapsed}, derr
		}
	}
	if len(prediction) == 0 {
		slog.Debug("No daily prediction available", "patient_id", patientID)
		return DailyResult{State: domain.PredictionStateNoData, Elapsed: elapsed}, nil
	}

	slog.Debug("Daily prediction loaded", "patient_id", patientID, "elapsed", elapsed)
	return DailyResult{State: domain.PredictionStateOK, Prediction: prediction, Elapsed: elapsed}, nil
}

// List fetches predictions for userID over windowDays (0 means 3). Blocked
// cross-origin failures are retried together with transient ones.
func (s *Service) List(ctx context.Context, userID string, types []string, windowDays int) (ListResult, error) {
	if userID == "" {
		return ListResult{State: domain.PredictionStateNoData}, nil
	}
	if windowDays <= 0 {
		windowDays = defaultWindowDays
	}

	params := map[string]string{"window_days": strconv.Itoa(windowDays)}
	if len(types) > 0 {
		params["types"] = strings.Join(types, ",")
	}

	start := time.Now()
	body, err := s.api.Get(ctx, listPathPrefix+url.PathEscape(userID), apiclient.Options{
		MaxRetries: listMaxRetries,
		Params:     params,
		Retryable:  retry.AlsoRetry(classify.KindCORS),
	})
	elapsed := time.Since(start)

	if err != nil {
		slog.Warn("Predictions fetch failed", "user_id", userID, "error", err)
		return ListResult{State: domain.PredictionStateError, Kind: kindOf(err), Elapsed: elapsed}, err
	}

	predictions, err := decodeList(body)
	if err != nil {
		derr := invalidResponse(err)
		return ListResult{State: domain.PredictionStateError, Kind: derr.Kind, Elapsed: elapsed}, derr
	}
	if len(predictions) == 0 {
		return ListResult{State: domain.PredictionStateNoData, Elapsed: elapsed}, nil
	}

	slog.Debug("Predictions loaded", "user_id", userID, "count", len(predictions), "elapsed", elapsed)
	return ListResult{State: domain.PredictionStateOK, Predictions: predictions, Elapsed: elapsed}, nil
}

// decodeList accepts a bare array or {"predictions": [...]}. Anything else
// decodes to an empty list.
func decodeList(body json.RawMessage) ([]domain.Prediction, error) {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}

	if strings.HasPrefix(trimmed, "[") {
		var list []domain.Prediction
		if err := json.Unmarshal(body, &list); err != nil {
			return nil, fmt.Errorf("decode predictions: %w", err)
		}
		return list, nil
	}

	var wrapped struct {
		Predictions json.RawMessage `json:"predictions"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("decode predictions: %w", err)
	}
	if !strings.HasPrefix(strings.TrimSpace(string(wrapped.Predictions)), "[") {
		return nil, nil
	}

	var list []domain.Prediction
	if err := json.Unmarshal(wrapped.Predictions, &list); err != nil {
		return nil, fmt.Errorf("decode predictions: %w", err)
	}
	return list, nil
}

func kindOf(err error) classify.Kind {
	if ae, ok := apierr.As(err); ok {
		return ae.Kind
	}
	return classify.KindUnknown
}

func invalidResponse(err error) *apierr.Error {
	return apierr.New(0, classify.KindUnknown, apierr.MsgInvalidResponse,
		map[string]any{"type": apierr.TypeInvalidJSON}, err)
}
