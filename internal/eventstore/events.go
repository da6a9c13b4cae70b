package eventstore

import (
	"encoding/json"
	"fmt"
)

// Event type names.
const (
	TypeDefaultSaved    = "DefaultSaved"
	TypeDefaultCleared  = "DefaultCleared"
	TypeManualSaved     = "ManualSaved"
	TypeManualCleared   = "ManualCleared"
	TypeDayReset        = "DayReset"
	TypeDayMaterialized = "DayMaterialized"
)

// DefaultSaved is journaled when a positive default is configured.
type DefaultSaved struct {
	Metric    string `json:"metric"`
	Level     int    `json:"level"`
	Previous  int    `json:"previous"`
	StartDate string `json:"start_date"`
	Timezone  string `json:"timezone"`
	// WroteToday is true when activation filled today's empty record.
	WroteToday bool `json:"wrote_today"`
}

// DefaultCleared is journaled when a default is deactivated.
type DefaultCleared struct {
	Metric       string `json:"metric"`
	Previous     int    `json:"previous"`
	Day          string `json:"day"`
	RemovedToday bool   `json:"removed_today"`
}

// ManualEntry is the payload of ManualSaved and ManualCleared.
type ManualEntry struct {
	Metric   string `json:"metric"`
	Day      string `json:"day"`
	Level    int    `json:"level"`
	Previous int    `json:"previous"`
}

// DayReset is journaled when a day is explicitly emptied.
type DayReset struct {
	Day     string   `json:"day"`
	Metrics []string `json:"metrics"`
}

// DayMaterialized is journaled for every default written by the scheduled pass.
type DayMaterialized struct {
	Metric   string `json:"metric"`
	Day      string `json:"day"`
	Level    int    `json:"level"`
	Timezone string `json:"timezone"`
}

// MarshalPayload encodes a typed payload for Append.
func MarshalPayload(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %T: %v", ErrMarshalPayloadFailed, v, err)
	}
	return b, nil
}

// DecodePayload decodes an event payload into its typed form.
func DecodePayload[T any](e Event) (T, error) {
	var v T
	if err := json.Unmarshal(e.Payload(), &v); err != nil {
		return v, fmt.Errorf("%w: %s #%d: %v", ErrUnmarshalPayloadFailed, e.Type(), e.ID(), err)
	}
	return v, nil
}
