package models

// Snapshot is the full current alert state returned by the polling endpoint.
type Snapshot struct {
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	Alerts     []Alert                `json:"alerts"`
	Armed      bool                   `json:"armed"`
	QuietHours []string               `json:"quiet_hours"`
}

// Preferences is a partial update of the user's delivery preferences.
// Nil fields are left unchanged server-side.
type Preferences struct {
	Armed      *bool    `json:"armed,omitempty"`
	QuietHours []string `json:"quiet_hours,omitempty"`
}

// ActionRequest is the body of an alert action call.
type ActionRequest struct {
	Action string `json:"action"`
}
