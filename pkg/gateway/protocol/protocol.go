// Package protocol defines the JSON frames exchanged between UI clients and
// the live gateway over the /v1/live websocket.
package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	FrameKindAudio = "audio"
	FrameKindImage = "image"
)

type DecodeError struct {
	Code    string
	Message string
	Param   string
}

func (e *DecodeError) Error() string {
	if e == nil {
		return ""
	}
	if strings.TrimSpace(e.Param) == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Param)
}

func badRequest(message, param string) *DecodeError {
	return &DecodeError{Code: "bad_request", Message: message, Param: param}
}

// Command is the decoded form of one inbound client frame.
type Command interface {
	commandType() string
}

// StartCommand opens a live session.
type StartCommand struct {
	ProfileID    string `json:"profile_id"`
	Language     string `json:"language"`
	CustomPrompt string `json:"custom_prompt,omitempty"`
}

func (StartCommand) commandType() string { return "start" }

// StopCommand closes the live session.
type StopCommand struct{}

func (StopCommand) commandType() string { return "stop" }

// TextCommand sends a user-typed message.
type TextCommand struct {
	Text string `json:"text"`
}

func (TextCommand) commandType() string { return "text" }

// FrameCommand carries one capture frame: base64 PCM audio or an encoded
// image.
type FrameCommand struct {
	Kind     string `json:"kind"`
	Data     string `json:"data"`
	MIMEType string `json:"mime_type,omitempty"`
}

func (FrameCommand) commandType() string { return "frame" }

type rawCommand struct {
	Type         string `json:"type"`
	ProfileID    string `json:"profile_id"`
	Language     string `json:"language"`
	CustomPrompt string `json:"custom_prompt"`
	Text         string `json:"text"`
	Kind         string `json:"kind"`
	Data         string `json:"data"`
	MIMEType     string `json:"mime_type"`
}

// DecodeCommand parses one inbound frame.
func DecodeCommand(data []byte) (Command, *DecodeError) {
	var raw rawCommand
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, badRequest("malformed JSON frame", "")
	}

	switch raw.Type {
	case "start":
		profile := strings.TrimSpace(raw.ProfileID)
		if profile == "" {
			profile = "exam"
		}
		language := strings.TrimSpace(raw.Language)
		if language == "" {
			language = "en-US"
		}
		return StartCommand{
			ProfileID:    profile,
			Language:     language,
			CustomPrompt: raw.CustomPrompt,
		}, nil
	case "stop":
		return StopCommand{}, nil
	case "text":
		if strings.TrimSpace(raw.Text) == "" {
			return nil, badRequest("text must be non-empty", "text")
		}
		return TextCommand{Text: raw.Text}, nil
	case "frame":
		if raw.Kind != FrameKindAudio && raw.Kind != FrameKindImage {
			return nil, badRequest("kind must be audio or image", "kind")
		}
		if raw.Data == "" {
			return nil, badRequest("data must be non-empty", "data")
		}
		return FrameCommand{Kind: raw.Kind, Data: raw.Data, MIMEType: raw.MIMEType}, nil
	case "":
		return nil, badRequest("missing frame type", "type")
	default:
		return nil, badRequest(fmt.Sprintf("unknown frame type %q", raw.Type), "type")
	}
}

// ServerFrame is one outbound gateway frame.
type ServerFrame struct {
	Type          string `json:"type"`
	SessionID     string `json:"session_id,omitempty"`
	Text          string `json:"text,omitempty"`
	Index         int    `json:"index,omitempty"`
	Message       string `json:"message,omitempty"`
	Code          string `json:"code,omitempty"`
	Param         string `json:"param,omitempty"`
	Transcription string `json:"transcription,omitempty"`
	Response      string `json:"response,omitempty"`
}

// SessionFrame announces the session ID after a successful start.
func SessionFrame(sessionID string) ServerFrame {
	return ServerFrame{Type: "session", SessionID: sessionID}
}

// ResponseFrame carries the full text of the streaming turn.
func ResponseFrame(text string, index int) ServerFrame {
	return ServerFrame{Type: "response", Text: text, Index: index}
}

// StatusFrame carries user-visible status text.
func StatusFrame(text string) ServerFrame {
	return ServerFrame{Type: "status", Text: text}
}

// ErrorFrame carries a non-fatal error.
func ErrorFrame(code, message, param string) ServerFrame {
	return ServerFrame{Type: "error", Code: code, Message: message, Param: param}
}

// TurnSavedFrame announces that a completed turn was persisted.
func TurnSavedFrame(sessionID, transcription, response string) ServerFrame {
	return ServerFrame{
		Type:          "turn",
		SessionID:     sessionID,
		Transcription: transcription,
		Response:      response,
	}
}
