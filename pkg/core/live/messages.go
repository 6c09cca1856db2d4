package live

import "context"

// ServerMessage is the tagged-variant set for inbound live messages.
// The connector decodes vendor payloads into these once, at the boundary.
type ServerMessage interface {
	// Kind returns the message kind string for logging.
	Kind() string
}

// TranscriptionFragment is an incremental transcription of the input audio.
type TranscriptionFragment struct {
	Text string
}

func (TranscriptionFragment) Kind() string { return "transcription_fragment" }

// ResponseFragment is an incremental piece of streamed reply text.
type ResponseFragment struct {
	Text string
}

func (ResponseFragment) Kind() string { return "response_fragment" }

// GenerationComplete signals that the model finished generating the reply.
type GenerationComplete struct{}

func (GenerationComplete) Kind() string { return "generation_complete" }

// TurnComplete signals that the remote considers the turn finished and is
// ready for the next input.
type TurnComplete struct{}

func (TurnComplete) Kind() string { return "turn_complete" }

// ConnectorConfig carries everything the remote connector needs to open a
// live connection. The wire format behind it is vendor-owned.
type ConnectorConfig struct {
	Model                          string
	Credential                     string
	SystemInstruction              string
	Language                       string
	EnableGoogleSearch             bool
	EnableInputTranscription       bool
	EnableSlidingWindowCompression bool
}

// ConnHandlers is the callback set a connection delivers remote events on.
// Callbacks are invoked from the connection's receive goroutine.
type ConnHandlers struct {
	// OnMessage delivers a decoded inbound message.
	OnMessage func(ServerMessage)
	// OnError reports an error on an open connection. The connection is not
	// closed by the error itself.
	OnError func(error)
	// OnClose reports that the remote connection closed. It fires at most
	// once, after which no further callbacks are delivered.
	OnClose func(reason string)
}

// Connector opens live connections to the remote conversational endpoint.
// Connect returns only after the handshake completes.
type Connector interface {
	Connect(ctx context.Context, cfg ConnectorConfig, handlers ConnHandlers) (Conn, error)
}

// Conn is an open duplex connection to the remote endpoint.
type Conn interface {
	// SendText sends a synthetic text input.
	SendText(ctx context.Context, text string) error
	// SendAudio sends one base64-decoded PCM frame.
	SendAudio(ctx context.Context, data []byte, mimeType string) error
	// SendMedia sends an encoded image buffer.
	SendMedia(ctx context.Context, data []byte, mimeType string) error
	// Close closes the connection. Idempotent.
	Close() error
}
