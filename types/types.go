package types

import "time"

// ---- Service state (retained) ----

type ServiceState struct {
	Level  string    `json:"level"`  // "idle", "ready", "error", "stopped"
	Status string    `json:"status"` // freeform short code
	Error  string    `json:"error,omitempty"`
	TS     time.Time `json:"ts"`
}

// ---- Generic replies ----

type OKReply struct {
	OK bool `json:"ok"`
}

type ErrorReply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
	Msg   string `json:"msg,omitempty"`
}

// ---- Info envelope (retained) ----

type Info struct {
	SchemaVersion int    `json:"schema_version"`
	Driver        string `json:"driver"`
	Detail        any    `json:"detail,omitempty"`
}

// ---- Heartbeat (retained) ----

type Heartbeat struct {
	UptimeMS int64     `json:"uptime_ms"`
	Cameras  int       `json:"cameras"`
	TS       time.Time `json:"ts"`
}
