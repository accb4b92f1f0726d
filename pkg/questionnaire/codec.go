package questionnaire

import (
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/gofhir/fhir/r4"
)

// ResourceType values accepted by the decoders.
const (
	ResourceQuestionnaire         = "Questionnaire"
	ResourceQuestionnaireResponse = "QuestionnaireResponse"
	ResourceOperationOutcome      = "OperationOutcome"
)

// Marshal encodes q as Questionnaire JSON, always carrying resourceType.
func Marshal(q *r4.Questionnaire) ([]byte, error) {
	if q == nil {
		return nil, ErrNilQuestionnaire
	}
	return marshalResource(q, ResourceQuestionnaire)
}

// MarshalOutcome encodes oo as OperationOutcome JSON.
func MarshalOutcome(oo *r4.OperationOutcome) ([]byte, error) {
	if oo == nil {
		return nil, errors.New("operation outcome is nil")
	}
	return marshalResource(oo, ResourceOperationOutcome)
}

// Unmarshal decodes Questionnaire JSON. A resourceType other than
// Questionnaire is rejected; a missing one is tolerated.
func Unmarshal(data []byte) (*r4.Questionnaire, error) {
	if err := checkResourceType(data, ResourceQuestionnaire); err != nil {
		return nil, err
	}
	var q r4.Questionnaire
	if err := json.Unmarshal(data, &q); err != nil {
		return nil, fmt.Errorf("failed to parse Questionnaire: %w", err)
	}
	return &q, nil
}

// UnmarshalResponse decodes QuestionnaireResponse JSON.
func UnmarshalResponse(data []byte) (*r4.QuestionnaireResponse, error) {
	if err := checkResourceType(data, ResourceQuestionnaireResponse); err != nil {
		return nil, err
	}
	var qr r4.QuestionnaireResponse
	if err := json.Unmarshal(data, &qr); err != nil {
		return nil, fmt.Errorf("failed to parse QuestionnaireResponse: %w", err)
	}
	return &qr, nil
}

func checkResourceType(data []byte, want string) error {
	var probe struct {
		ResourceType string `json:"resourceType"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if probe.ResourceType != "" && probe.ResourceType != want {
		return fmt.Errorf("expected %s, got %s", want, probe.ResourceType)
	}
	return nil
}

func marshalResource(v any, resourceType string) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", resourceType, err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("encode %s: %w", resourceType, err)
	}
	if _, ok := fields["resourceType"]; ok {
		return raw, nil
	}
	fields["resourceType"] = json.RawMessage(`"` + resourceType + `"`)
	return json.Marshal(fields)
}
