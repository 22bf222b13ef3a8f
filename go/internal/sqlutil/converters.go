package sqlutil

import (
	"encoding/json"
	"fmt"

	"github.com/DenisKelolli/Golf-App/go/internal/models"
	"github.com/sqlc-dev/pqtype"
)

// Helper functions for converting between domain types and column types

// ToInt4Array converts score slots to a nullable int4[] parameter
func ToInt4Array(scores models.Scores) []*int32 {
	out := make([]*int32, len(scores))
	for i, v := range scores {
		if v != nil {
			n := int32(*v)
			out[i] = &n
		}
	}
	return out
}

// FromInt4Array converts a scanned nullable int4[] column to score slots
func FromInt4Array(vals []*int32) models.Scores {
	out := make(models.Scores, len(vals))
	for i, v := range vals {
		if v != nil {
			n := int(*v)
			out[i] = &n
		}
	}
	return out
}

// ToNullJSON marshals v into a nullable JSONB value; a nil v is stored as SQL NULL
func ToNullJSON(v any) (pqtype.NullRawMessage, error) {
	if v == nil {
		return pqtype.NullRawMessage{Valid: false}, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return pqtype.NullRawMessage{}, fmt.Errorf("marshal json column: %w", err)
	}
	return pqtype.NullRawMessage{RawMessage: raw, Valid: true}, nil
}

// FromNullJSON unmarshals a nullable JSONB column into dst, reporting whether it was set
func FromNullJSON(val pqtype.NullRawMessage, dst any) (bool, error) {
	if !val.Valid || len(val.RawMessage) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(val.RawMessage, dst); err != nil {
		return false, fmt.Errorf("unmarshal json column: %w", err)
	}
	return true, nil
}
