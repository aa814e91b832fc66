package httpapi

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/skywalker0803r/AIInterviewer-backend/internal/interview"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsOutboundSize = 64
)

// Client messages on the interview socket.
type wsClientMessage struct {
	Type        string `json:"type"`
	AudioBase64 string `json:"audio_base64,omitempty"`
}

// Server messages. Exactly one payload group is populated per type.
type wsServerMessage struct {
	Type           string            `json:"type"`
	Text           string            `json:"text,omitempty"`
	AudioURL       string            `json:"audio_url,omitempty"`
	ClosingMessage string            `json:"closing_message,omitempty"`
	Report         *interview.Report `json:"report,omitempty"`
	Code           string            `json:"code,omitempty"`
	Error          string            `json:"error,omitempty"`
}

// handleInterviewWS streams one interview session over a websocket. The
// client uploads answer audio in base64 chunks and commits each answer;
// the server pushes the transcript, the next question, and finally the
// report.
func (s *Server) handleInterviewWS(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "query parameter session_id is required")
		return
	}
	if _, err := s.manager.GetSession(sessionID); err != nil {
		s.respondCoreError(w, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &wsConn{
		server:    s,
		conn:      conn,
		sessionID: sessionID,
		outbound:  make(chan wsServerMessage, wsOutboundSize),
		done:      make(chan struct{}),
	}
	go c.writeLoop()
	c.readLoop(r.Context())
}

type wsConn struct {
	server    *Server
	conn      *websocket.Conn
	sessionID string
	outbound  chan wsServerMessage
	done      chan struct{}

	audioBuf []byte
}

func (c *wsConn) readLoop(ctx context.Context) {
	defer func() {
		close(c.outbound)
		<-c.done
		c.conn.Close()
	}()

	for {
		var msg wsClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.server.logger.Debug("websocket read error",
					zap.String("session_id", c.sessionID), zap.Error(err))
			}
			return
		}
		c.countMessage("in", msg.Type)

		switch msg.Type {
		case "audio_chunk":
			chunk, err := base64.StdEncoding.DecodeString(msg.AudioBase64)
			if err != nil {
				c.sendError("invalid_audio", "audio_base64 is not valid base64")
				continue
			}
			if len(c.audioBuf)+len(chunk) > maxAudioBytes {
				c.sendError("audio_too_large", "buffered audio exceeds the size limit")
				c.audioBuf = nil
				continue
			}
			c.audioBuf = append(c.audioBuf, chunk...)
		case "commit":
			done := c.commitAnswer(ctx)
			c.audioBuf = nil
			if done {
				return
			}
		case "end":
			c.endInterview(ctx)
			return
		default:
			c.sendError("unknown_type", "unknown message type "+msg.Type)
		}
	}
}

// commitAnswer submits the buffered audio as one answer. Returns true when
// the interview finished and the socket should close.
func (c *wsConn) commitAnswer(ctx context.Context) bool {
	result, err := c.server.manager.SubmitAnswer(ctx, c.sessionID, c.audioBuf)
	if err != nil {
		c.sendCoreError(err)
		return errors.Is(err, interview.ErrSessionNotFound)
	}

	c.send(wsServerMessage{Type: "transcript", Text: result.Transcript})
	if result.Report != nil {
		c.send(wsServerMessage{
			Type:           "report",
			Report:         result.Report,
			ClosingMessage: result.ClosingMessage,
			AudioURL:       result.AudioURL,
		})
		return true
	}
	c.send(wsServerMessage{Type: "question", Text: result.NextQuestion, AudioURL: result.AudioURL})
	return false
}

func (c *wsConn) endInterview(ctx context.Context) {
	report, err := c.server.manager.EndInterview(ctx, c.sessionID)
	if err != nil {
		c.sendCoreError(err)
		return
	}
	c.send(wsServerMessage{Type: "report", Report: report})
}

func (c *wsConn) sendCoreError(err error) {
	switch {
	case errors.Is(err, interview.ErrSessionNotFound):
		c.sendError("session_not_found", err.Error())
	case errors.Is(err, interview.ErrInvalidState):
		c.sendError("invalid_state", err.Error())
	case errors.Is(err, interview.ErrReportNotReady):
		c.sendError("report_not_ready", err.Error())
	case errors.Is(err, interview.ErrOracleUnavailable):
		c.sendError("oracle_unavailable", err.Error())
	default:
		c.sendError("internal_error", err.Error())
	}
}

func (c *wsConn) sendError(code, message string) {
	c.send(wsServerMessage{Type: "error", Code: code, Error: message})
}

func (c *wsConn) send(msg wsServerMessage) {
	select {
	case c.outbound <- msg:
	default:
		c.server.logger.Warn("websocket outbound queue full, dropping message",
			zap.String("session_id", c.sessionID), zap.String("type", msg.Type))
	}
}

func (c *wsConn) writeLoop() {
	defer close(c.done)
	for msg := range c.outbound {
		c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := c.conn.WriteJSON(msg); err != nil {
			c.server.logger.Debug("websocket write error",
				zap.String("session_id", c.sessionID), zap.Error(err))
			return
		}
		c.countMessage("out", msg.Type)
	}
	c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (c *wsConn) countMessage(direction, msgType string) {
	if c.server.metrics == nil {
		return
	}
	if msgType == "" {
		msgType = "unknown"
	}
	c.server.metrics.WSMessages.WithLabelValues(direction, msgType).Inc()
}
