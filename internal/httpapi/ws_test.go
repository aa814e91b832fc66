package httpapi

import (
	"context"
	"encoding/base64"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialWS(t *testing.T, env *testEnv, sessionID string) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(env.router)
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/interviews/ws?session_id=" + sessionID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) wsServerMessage {
	t.Helper()
	var msg wsServerMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func TestWebsocketInterviewFlow(t *testing.T) {
	env := newTestEnv(t, 2)

	started, err := env.manager.Start(context.Background(), "Engineer", "desc")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	conn := dialWS(t, env, started.SessionID)

	audio := base64.StdEncoding.EncodeToString([]byte("first answer audio"))
	if err := conn.WriteJSON(wsClientMessage{Type: "audio_chunk", AudioBase64: audio}); err != nil {
		t.Fatalf("write chunk: %v", err)
	}
	if err := conn.WriteJSON(wsClientMessage{Type: "commit"}); err != nil {
		t.Fatalf("write commit: %v", err)
	}

	transcript := readMessage(t, conn)
	if transcript.Type != "transcript" || transcript.Text == "" {
		t.Fatalf("first message = %+v, want a transcript", transcript)
	}
	question := readMessage(t, conn)
	if question.Type != "question" || question.Text == "" {
		t.Fatalf("second message = %+v, want the next question", question)
	}

	// Final answer finishes the interview and pushes the report.
	if err := conn.WriteJSON(wsClientMessage{Type: "audio_chunk", AudioBase64: audio}); err != nil {
		t.Fatalf("write chunk: %v", err)
	}
	if err := conn.WriteJSON(wsClientMessage{Type: "commit"}); err != nil {
		t.Fatalf("write commit: %v", err)
	}

	transcript = readMessage(t, conn)
	if transcript.Type != "transcript" {
		t.Fatalf("message = %+v, want a transcript", transcript)
	}
	report := readMessage(t, conn)
	if report.Type != "report" || report.Report == nil {
		t.Fatalf("message = %+v, want the report", report)
	}
	if report.Report.TurnCount != 2 {
		t.Fatalf("turn count = %d, want 2", report.Report.TurnCount)
	}
}

func TestWebsocketEnd(t *testing.T) {
	env := newTestEnv(t, 8)

	started, err := env.manager.Start(context.Background(), "Engineer", "desc")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	conn := dialWS(t, env, started.SessionID)

	if err := conn.WriteJSON(wsClientMessage{Type: "end"}); err != nil {
		t.Fatalf("write end: %v", err)
	}

	report := readMessage(t, conn)
	if report.Type != "report" || report.Report == nil {
		t.Fatalf("message = %+v, want the report", report)
	}
}

func TestWebsocketRejectsBadMessages(t *testing.T) {
	env := newTestEnv(t, 8)

	started, err := env.manager.Start(context.Background(), "Engineer", "desc")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	conn := dialWS(t, env, started.SessionID)

	if err := conn.WriteJSON(wsClientMessage{Type: "audio_chunk", AudioBase64: "not base64!!"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	msg := readMessage(t, conn)
	if msg.Type != "error" || msg.Code != "invalid_audio" {
		t.Fatalf("message = %+v, want an invalid_audio error", msg)
	}

	if err := conn.WriteJSON(wsClientMessage{Type: "mystery"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	msg = readMessage(t, conn)
	if msg.Type != "error" || msg.Code != "unknown_type" {
		t.Fatalf("message = %+v, want an unknown_type error", msg)
	}
}

func TestWebsocketUnknownSession(t *testing.T) {
	env := newTestEnv(t, 8)

	srv := httptest.NewServer(env.router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/interviews/ws?session_id=nope"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatal("expected the dial to fail for an unknown session")
	}
	if resp == nil || resp.StatusCode != 404 {
		t.Fatalf("resp = %+v, want a 404", resp)
	}
}
