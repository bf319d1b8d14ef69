package dto

import (
	"encoding/json"
	"errors"
	"strings"
)

// UpsertProfileInput is the body of POST /profile.
type UpsertProfileInput struct {
	FirstName string   `json:"first_name" binding:"required"`
	MidName   *string  `json:"mid_name"`
	LastName  string   `json:"last_name" binding:"required"`
	Country   *string  `json:"country"`
	City      *string  `json:"city"`
	School    string   `json:"school" binding:"required"`
	Hobbies   ListText `json:"hobbies" binding:"required"`
	Skills    ListText `json:"skills" binding:"required"`
}

// ListText accepts either "a, b, c" or ["a", "b", "c"] and keeps the
// trimmed, non-empty items in order. An input with no items decodes to nil.
type ListText []string

func (l *ListText) UnmarshalJSON(data []byte) error {
	var raw []string

	switch {
	case string(data) == "null":
		*l = nil
		return nil
	case len(data) > 0 && data[0] == '"':
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		raw = strings.Split(text, ",")
	case len(data) > 0 && data[0] == '[':
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
	default:
		return errors.New("expected a comma separated string or a list of strings")
	}

	*l = SplitList(raw)
	return nil
}

// SplitList trims every item and drops the empty ones.
func SplitList(items []string) ListText {
	var out ListText
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
