package domain

import "encoding/json"

// PredictionState is the load state of a prediction view.
type PredictionState string

const (
	PredictionStateOK     PredictionState = "ok"
	PredictionStateNoData PredictionState = "no_data"
	PredictionStateError  PredictionState = "error"
)

// DailyPredictionRequest is the body of POST /predict/state.
type DailyPredictionRequest struct {
	PatientID string         `json:"patient_id"`
	Features  map[string]any `json:"features"`
}

// Prediction is one model output. The payload shape belongs to the backend,
// so only the commonly rendered fields are typed; Raw keeps the rest.
type Prediction struct {
	Type        string          `json:"type,omitempty"`
	Label       string          `json:"label,omitempty"`
	Probability *float64        `json:"probability,omitempty"`
	Raw         json.RawMessage `json:"-"`
}

// UnmarshalJSON keeps the raw payload alongside the typed fields.
func (p *Prediction) UnmarshalJSON(data []byte) error {
	type alias Prediction
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*p = Prediction(a)
	p.Raw = append(json.RawMessage(nil), data...)
	return nil
}
