package features

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"RiskScore/internal/domain/models"
)

// ParseAnomalyRecords decodes a tabular payload that is either one JSON
// object or a JSON array of objects. Numbers are kept as json.Number so
// integer labels survive unchanged.
func ParseAnomalyRecords(raw []byte) ([]models.AnomalyRecord, error) {
	body := bytes.TrimSpace(raw)
	if len(body) == 0 {
		return nil, &ShapeError{Reason: "empty body"}
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var recs []models.AnomalyRecord
	switch body[0] {
	case '{':
		var rec models.AnomalyRecord
		if err := dec.Decode(&rec); err != nil {
			return nil, &ShapeError{Reason: fmt.Sprintf("decode object: %v", err)}
		}
		recs = []models.AnomalyRecord{rec}
	case '[':
		if err := dec.Decode(&recs); err != nil {
			return nil, &ShapeError{Reason: fmt.Sprintf("decode array: %v", err)}
		}
		for i, r := range recs {
			if r == nil {
				return nil, &ShapeError{Reason: fmt.Sprintf("element %d is not an object", i)}
			}
		}
	default:
		return nil, &ShapeError{Reason: "expected a JSON object or an array of objects"}
	}
	// exactly one top-level value
	if err := dec.Decode(&json.RawMessage{}); !errors.Is(err, io.EOF) {
		return nil, &ShapeError{Reason: "trailing data after JSON value"}
	}
	return recs, nil
}
