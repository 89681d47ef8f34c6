package simulation

import "encoding/json"

// Input is a simulation request. Data is mandatory; Type, when present,
// overrides shape inference.
type Input struct {
	Name       string         `json:"name"`
	Data       any            `json:"data"`
	Type       string         `json:"type"`
	Parameters map[string]any `json:"parameters"`
}

// shapeKind enumerates the supported input data shapes.
type shapeKind int

const (
	shapeOther shapeKind = iota
	shapeNumericSeries
	shapeLabels
	shapeKeyed
	shapeScalar
)

// dataShape is the resolved form of an opaque data payload. Exactly one of
// the variant fields is populated, selected by kind.
type dataShape struct {
	kind    shapeKind
	numbers []float64
	labels  []string
	keyed   map[string]any
	scalar  float64
}

// resolveShape classifies a decoded JSON value into one of the supported
// shapes. JSON numbers decode as float64, which is the only numeric kind
// considered.
func resolveShape(data any) dataShape {
	switch v := data.(type) {
	case []any:
		if len(v) == 0 {
			return dataShape{kind: shapeOther}
		}
		numbers := make([]float64, 0, len(v))
		numeric := true
		for _, item := range v {
			n, ok := item.(float64)
			if !ok {
				numeric = false
				break
			}
			numbers = append(numbers, n)
		}
		if numeric {
			return dataShape{kind: shapeNumericSeries, numbers: numbers}
		}
		labels := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				labels = append(labels, s)
			} else {
				raw, _ := json.Marshal(item)
				labels = append(labels, string(raw))
			}
		}
		return dataShape{kind: shapeLabels, labels: labels}

	case map[string]any:
		return dataShape{kind: shapeKeyed, keyed: v}

	case float64:
		return dataShape{kind: shapeScalar, scalar: v}

	default:
		return dataShape{kind: shapeOther}
	}
}

// analysisType returns the declared type when set, otherwise the type implied
// by the data shape.
func (in Input) analysisType() string {
	if in.Type != "" {
		return in.Type
	}
	switch resolveShape(in.Data).kind {
	case shapeNumericSeries, shapeScalar:
		return TypePrediction
	case shapeLabels:
		return TypePattern
	case shapeKeyed:
		return TypeClassification
	default:
		return TypeAnalysis
	}
}
