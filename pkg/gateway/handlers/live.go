package handlers

import (
	"context"
	"encoding/base64"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lockin-live/lockin/pkg/core"
	"github.com/lockin-live/lockin/pkg/core/live"
	"github.com/lockin-live/lockin/pkg/gateway/apierror"
	"github.com/lockin-live/lockin/pkg/gateway/config"
	"github.com/lockin-live/lockin/pkg/gateway/protocol"
)

// OrchestratorFactory builds a fresh session core for one websocket
// connection. Each connection owns at most one live session.
type OrchestratorFactory func() *live.Orchestrator

// LiveHandler handles /v1/live websocket connections. It bridges the JSON
// command protocol to an Orchestrator: inbound frames become capture input,
// orchestrator events become outbound frames.
type LiveHandler struct {
	Config          config.Config
	Logger          *slog.Logger
	NewOrchestrator OrchestratorFactory
}

func (h LiveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID := requestIDFromContext(r)
	if r.Method != http.MethodGet {
		writeCoreErrorJSON(w, reqID, &core.Error{
			Type:      core.ErrInvalidRequest,
			Message:   "method not allowed",
			Code:      "method_not_allowed",
			RequestID: reqID,
		}, http.StatusMethodNotAllowed)
		return
	}
	if h.NewOrchestrator == nil {
		writeCoreErrorJSON(w, reqID, core.NewAPIError("live sessions are not configured"), http.StatusInternalServerError)
		return
	}

	upgrader := websocket.Upgrader{
		HandshakeTimeout: h.Config.WSHandshakeTimeout,
		CheckOrigin:      func(*http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	if h.Config.WSMaxMessageBytes > 0 {
		conn.SetReadLimit(h.Config.WSMaxMessageBytes)
	}

	orch := h.NewOrchestrator()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	out := make(chan protocol.ServerFrame, 32)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writeLoop(ctx, conn, orch.Events(), out)
	}()

	h.readLoop(ctx, conn, orch, out, reqID)

	orch.StopSession()
	cancel()
	<-writerDone
}

func (h LiveHandler) readLoop(ctx context.Context, conn *websocket.Conn, orch *live.Orchestrator, out chan<- protocol.ServerFrame, reqID string) {
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				h.logger().Warn("live connection closed", "request_id", reqID, "error", err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			h.send(ctx, out, protocol.ErrorFrame("bad_request", "frames must be text", ""))
			continue
		}

		cmd, decErr := protocol.DecodeCommand(data)
		if decErr != nil {
			h.send(ctx, out, protocol.ErrorFrame(decErr.Code, decErr.Message, decErr.Param))
			continue
		}

		switch c := cmd.(type) {
		case protocol.StartCommand:
			if err := orch.StartSession(ctx, c.ProfileID, c.Language, c.CustomPrompt); err != nil {
				h.sendError(ctx, out, err, reqID)
				continue
			}
			h.send(ctx, out, protocol.SessionFrame(orch.Lifecycle().SessionID()))
		case protocol.StopCommand:
			orch.StopSession()
		case protocol.TextCommand:
			if err := orch.SendUserText(ctx, c.Text); err != nil {
				h.sendError(ctx, out, err, reqID)
			}
		case protocol.FrameCommand:
			h.handleFrame(ctx, orch, out, c)
		}
	}
}

// handleFrame decodes one capture frame and feeds it to the orchestrator.
// Frame problems are reported to the client but never end the connection.
func (h LiveHandler) handleFrame(ctx context.Context, orch *live.Orchestrator, out chan<- protocol.ServerFrame, c protocol.FrameCommand) {
	raw, err := base64.StdEncoding.DecodeString(c.Data)
	if err != nil {
		h.send(ctx, out, protocol.ErrorFrame("bad_request", "data must be base64", "data"))
		return
	}

	switch c.Kind {
	case protocol.FrameKindAudio:
		if h.Config.MaxAudioFrameBytes > 0 && len(raw) > h.Config.MaxAudioFrameBytes {
			h.send(ctx, out, protocol.ErrorFrame("bad_request", "audio frame too large", "data"))
			return
		}
		if len(raw)%2 != 0 {
			h.send(ctx, out, protocol.ErrorFrame("bad_request", "audio frames must be 16-bit PCM", "data"))
			return
		}
		orch.ProcessFrame(ctx, live.PCM16ToFloat64(raw))
	case protocol.FrameKindImage:
		orch.ProcessScreenshot(ctx, raw, c.MIMEType)
	}
}

func (h LiveHandler) writeLoop(ctx context.Context, conn *websocket.Conn, events <-chan live.Event, out <-chan protocol.ServerFrame) {
	pingInterval := h.Config.WSPingInterval
	if pingInterval <= 0 {
		pingInterval = 20 * time.Second
	}
	writeTimeout := h.Config.WSWriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}

	pingTicker := time.NewTicker(pingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeTimeout))
			return
		case <-pingTicker.C:
			if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeTimeout)); err != nil {
				return
			}
		case frame := <-out:
			if err := writeFrame(conn, frame, writeTimeout); err != nil {
				return
			}
		case ev := <-events:
			frame, ok := frameFromEvent(ev)
			if !ok {
				continue
			}
			if err := writeFrame(conn, frame, writeTimeout); err != nil {
				return
			}
		}
	}
}

func frameFromEvent(ev live.Event) (protocol.ServerFrame, bool) {
	switch e := ev.(type) {
	case *live.ResponseUpdatedEvent:
		return protocol.ResponseFrame(e.Text, e.Index), true
	case *live.StatusChangedEvent:
		return protocol.StatusFrame(e.Text), true
	case *live.ErrorOccurredEvent:
		return protocol.ErrorFrame("session_error", e.Message, ""), true
	case *live.TurnSavedEvent:
		return protocol.TurnSavedFrame(e.SessionID, e.Transcription, e.Response), true
	default:
		return protocol.ServerFrame{}, false
	}
}

func writeFrame(conn *websocket.Conn, frame protocol.ServerFrame, writeTimeout time.Duration) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return conn.WriteJSON(frame)
}

func (h LiveHandler) sendError(ctx context.Context, out chan<- protocol.ServerFrame, err error, reqID string) {
	coreErr, _ := apierror.FromError(err, reqID)
	h.send(ctx, out, protocol.ErrorFrame(string(coreErr.Type), coreErr.Message, coreErr.Param))
}

func (h LiveHandler) send(ctx context.Context, out chan<- protocol.ServerFrame, frame protocol.ServerFrame) {
	select {
	case out <- frame:
	case <-ctx.Done():
	}
}

func (h LiveHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}
