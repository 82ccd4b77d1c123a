package domain

import (
	"encoding/json"
	"testing"
)

func TestPrediction_UnmarshalKeepsRaw(t *testing.T) {
	data := []byte(`{"type":"mood_state","label":"stable","probability":0.82,"extra":{"model":"v2"}}`)

	var p Prediction
	if err := json.Unmarshal(data, &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.Type != "mood_state" || p.Label != "stable" {
		t.Errorf("unexpected fields %+v", p)
	}
	if p.Probability == nil || *p.Probability != 0.82 {
		t.Errorf("unexpected probability %v", p.Probability)
	}
	if string(p.Raw) != string(data) {
		t.Errorf("expected raw payload to be kept, got %s", p.Raw)
	}
}

func TestPrediction_UnmarshalRejectsNonObject(t *testing.T) {
	var p Prediction
	if err := json.Unmarshal([]byte(`"nope"`), &p); err == nil {
		t.Error("expected error for non-object prediction")
	}
}
