// Package geminilive adapts the Gemini Live API to the session core's
// connection interfaces. The wire protocol is vendor-owned; everything here
// is decode-at-the-boundary glue.
package geminilive

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"google.golang.org/genai"

	"github.com/lockin-live/lockin/pkg/core/live"
)

// Connector opens Gemini Live sessions.
type Connector struct {
	logger *slog.Logger
}

// New creates a Gemini Live connector.
func New(logger *slog.Logger) *Connector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Connector{logger: logger}
}

// Connect implements live.Connector. It returns after the live handshake
// completes and starts a receive goroutine delivering decoded messages.
func (c *Connector) Connect(ctx context.Context, cfg live.ConnectorConfig, handlers live.ConnHandlers) (live.Conn, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.Credential,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}

	lcc := &genai.LiveConnectConfig{
		ResponseModalities: []genai.Modality{genai.ModalityText},
	}
	if cfg.SystemInstruction != "" {
		lcc.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: cfg.SystemInstruction}},
		}
	}
	if cfg.EnableInputTranscription {
		lcc.InputAudioTranscription = &genai.AudioTranscriptionConfig{}
	}
	if cfg.EnableGoogleSearch {
		lcc.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}
	if cfg.EnableSlidingWindowCompression {
		lcc.ContextWindowCompression = &genai.ContextWindowCompressionConfig{
			SlidingWindow: &genai.SlidingWindow{},
		}
	}
	if cfg.Language != "" {
		lcc.SpeechConfig = &genai.SpeechConfig{LanguageCode: cfg.Language}
	}

	session, err := client.Live.Connect(ctx, cfg.Model, lcc)
	if err != nil {
		return nil, err
	}

	conn := &liveConn{
		session:  session,
		handlers: handlers,
		logger:   c.logger,
	}
	go conn.receiveLoop()
	return conn, nil
}

type liveConn struct {
	session  *genai.Session
	handlers live.ConnHandlers
	logger   *slog.Logger

	mu     sync.Mutex
	closed bool
}

func (c *liveConn) SendText(_ context.Context, text string) error {
	return c.session.SendRealtimeInput(genai.LiveRealtimeInput{Text: text})
}

func (c *liveConn) SendAudio(_ context.Context, data []byte, mimeType string) error {
	return c.session.SendRealtimeInput(genai.LiveRealtimeInput{
		Media: &genai.Blob{Data: data, MIMEType: mimeType},
	})
}

func (c *liveConn) SendMedia(_ context.Context, data []byte, mimeType string) error {
	return c.session.SendRealtimeInput(genai.LiveRealtimeInput{
		Media: &genai.Blob{Data: data, MIMEType: mimeType},
	})
}

func (c *liveConn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	return c.session.Close()
}

// receiveLoop decodes vendor messages into the core's tagged variants until
// the connection ends. OnClose fires exactly once.
func (c *liveConn) receiveLoop() {
	for {
		msg, err := c.session.Receive()
		if err != nil {
			c.mu.Lock()
			wasClosed := c.closed
			c.closed = true
			c.mu.Unlock()

			reason := "connection closed"
			if !wasClosed && !errors.Is(err, io.EOF) {
				reason = err.Error()
				if c.handlers.OnError != nil {
					c.handlers.OnError(err)
				}
			}
			if c.handlers.OnClose != nil {
				c.handlers.OnClose(reason)
			}
			return
		}
		c.dispatch(msg)
	}
}

func (c *liveConn) dispatch(msg *genai.LiveServerMessage) {
	sc := msg.ServerContent
	if sc == nil || c.handlers.OnMessage == nil {
		return
	}

	if sc.InputTranscription != nil && sc.InputTranscription.Text != "" {
		c.handlers.OnMessage(live.TranscriptionFragment{Text: sc.InputTranscription.Text})
	}
	if sc.ModelTurn != nil {
		for _, part := range sc.ModelTurn.Parts {
			if part != nil && part.Text != "" {
				c.handlers.OnMessage(live.ResponseFragment{Text: part.Text})
			}
		}
	}
	if sc.GenerationComplete {
		c.handlers.OnMessage(live.GenerationComplete{})
	}
	if sc.TurnComplete {
		c.handlers.OnMessage(live.TurnComplete{})
	}
}
