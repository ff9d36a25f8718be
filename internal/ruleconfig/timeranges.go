package ruleconfig

import (
	"encoding/json"

	"github.com/faceguard/core/internal/domain"
)

func marshalTimeRanges(ranges []domain.TimeRange) ([]byte, error) {
	if len(ranges) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(ranges)
}

func unmarshalTimeRanges(raw []byte) ([]domain.TimeRange, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var ranges []domain.TimeRange
	if err := json.Unmarshal(raw, &ranges); err != nil {
		return nil, err
	}
	return ranges, nil
}
