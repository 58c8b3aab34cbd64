package ws

import (
	"encoding/json"
	"fmt"

	"github.com/jobboard/dashboard/internal/dashboard"
	"github.com/jobboard/dashboard/internal/status"
)

type BaseMessage struct {
	Type string `json:"type"`
}

// Browser → Server

type SearchMessage struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type ToggleMessage struct {
	Type    string `json:"type"`
	Status  string `json:"status"`
	Enabled bool   `json:"enabled"`
}

type SourceMessage struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type TransitionMessage struct {
	Type   string `json:"type"`
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// Server → Browser

type AckMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

const (
	ModeHTML = "html"
	ModeText = "text"
)

type PatchMessage struct {
	Type    string `json:"type"`
	Target  string `json:"target"`
	Mode    string `json:"mode"`
	Content string `json:"content"`
}

// DownloadMessage carries a file for the browser to save. Data is base64 on
// the wire.
type DownloadMessage struct {
	Type        string `json:"type"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// decodeEvent turns a browser frame into a dashboard event.
func decodeEvent(data []byte) (dashboard.Event, error) {
	var msg BaseMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("invalid message format: %w", err)
	}

	switch msg.Type {
	case "search":
		var m SearchMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("invalid search message: %w", err)
		}
		return dashboard.SearchEvent{Value: m.Value}, nil

	case "toggle":
		var m ToggleMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("invalid toggle message: %w", err)
		}
		return dashboard.StatusFilterEvent{Status: status.Status(m.Status), Enabled: m.Enabled}, nil

	case "source":
		var m SourceMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("invalid source message: %w", err)
		}
		return dashboard.SourceEvent{Value: m.Value}, nil

	case "transition":
		var m TransitionMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("invalid transition message: %w", err)
		}
		return dashboard.TransitionEvent{JobID: m.JobID, Status: status.Status(m.Status)}, nil

	case "export":
		return dashboard.ExportEvent{}, nil

	default:
		return nil, fmt.Errorf("unknown message type: %s", msg.Type)
	}
}
