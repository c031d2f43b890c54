package types

// ModelStatus summarizes the last provisioning attempt for one model.
type ModelStatus struct {
	// ID of the model.
	ModelID string `json:"model_id"`
	// Capability the model was provisioned for.
	Capability Capability `json:"capability"`
	// Outcome of the last provisioning attempt, empty if never attempted.
	Outcome Outcome `json:"outcome,omitempty"`
}

// InstanceStatus summarizes one managed service instance for /status.
type InstanceStatus struct {
	// Label identifying the instance within the process.
	Label string `json:"label"`
	// Resolved network host of the instance.
	Host string `json:"host"`
	// Published TCP port of the instance.
	Port int `json:"port"`
	// Whether the instance is considered running.
	Running bool `json:"running"`
	// Models provisioned (or attempted) against this instance.
	Models []ModelStatus `json:"models,omitempty"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Managed instances, one per label.
	Instances []InstanceStatus `json:"instances"`
	// Uptime of the orchestrator in seconds.
	UptimeSeconds int64 `json:"uptime_seconds"`
	// Server time in unix seconds.
	ServerTimeUnix int64 `json:"server_time_unix"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	Error string `json:"error"`
	// HTTP status code.
	Code int `json:"code"`
}
