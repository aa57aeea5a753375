package settings

import (
	"encoding/json"
	"time"
)

// Row is one persisted payout_settings record.
type Row struct {
	Key       string          `json:"key"`
	ValueJSON json.RawMessage `json:"value_json"`
	UpdatedAt time.Time       `json:"updated_at"`
}
