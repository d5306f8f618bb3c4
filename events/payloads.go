package events

import "time"

// Generation is the payload of every generation event
type Generation struct {
	Run      uint64        `json:"run"`
	Mode     string        `json:"mode"`
	Fragment string        `json:"fragment,omitempty"`
	Text     string        `json:"text,omitempty"`
	Estimate time.Duration `json:"estimate,omitempty"`
	Fallback bool          `json:"fallback,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// History is the payload of HistoryChanged
type History struct {
	Count   int  `json:"count"`
	Cleared bool `json:"cleared,omitempty"`
}

// Connection is the payload of ConnectionChanged
type Connection struct {
	BaseURL   string `json:"baseUrl"`
	Connected bool   `json:"connected"`
	Error     string `json:"error,omitempty"`
}

// Preferences is the payload of PreferencesChanged
type Preferences struct {
	Theme    string `json:"theme"`
	Language string `json:"language"`
}
