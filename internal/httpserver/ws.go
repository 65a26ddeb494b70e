package httpserver

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/ujjwal16295/book-ai/internal/briefing"
	"github.com/ujjwal16295/book-ai/internal/catalog"
	"github.com/ujjwal16295/book-ai/internal/logging"
	"github.com/ujjwal16295/book-ai/internal/speech"
)

// wsClientMessage is an action from the browser. Types: "type", "submit",
// "pick", "popular", "dismiss", "retry", "play", "stop", "bye".
type wsClientMessage struct {
	Type      string             `json:"type"`
	Query     string             `json:"query,omitempty"`
	Title     string             `json:"title,omitempty"`
	Candidate *catalog.Candidate `json:"candidate,omitempty"`
}

// wsServerMessage pushes state to the browser; audio travels as separate
// binary frames.
type wsServerMessage struct {
	Type   string             `json:"type"` // "state" or "speech"
	State  *briefing.Snapshot `json:"state,omitempty"`
	Speech *speech.Snapshot   `json:"speech,omitempty"`
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 65536,
	CheckOrigin: func(r *http.Request) bool {
		// Same-origin enforcement is the reverse proxy's job here
		return true
	},
}

// wsConn serializes writes; gorilla permits one concurrent writer only.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsConn) writeJSON(v interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteJSON(v)
}

// WriteFrame delivers one synthesized audio frame as a binary message.
// Write errors just mean the listener went away; playback teardown follows
// from the read loop exiting.
func (w *wsConn) WriteFrame(pcm []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.conn.WriteMessage(websocket.BinaryMessage, pcm)
}

// serveSession upgrades to WebSocket and runs one briefing session plus one
// speech controller for the life of the connection. Teardown cancels both
// unconditionally.
func (s *Server) serveSession(c echo.Context) error {
	conn, err := wsUpgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logging.Warn("ws upgrade failed", "err", err)
		return nil
	}
	wc := &wsConn{conn: conn}
	defer conn.Close()

	var engine speech.Engine
	if s.deps.NewEngine != nil {
		engine = s.deps.NewEngine(wc)
	}
	ctl := speech.NewController(engine, s.deps.Voice, func(snap speech.Snapshot) {
		_ = wc.writeJSON(wsServerMessage{Type: "speech", Speech: &snap})
	})
	defer ctl.Close()

	sess := briefing.NewSession(s.deps.Suggestions, s.deps.Details, s.deps.Generator, func(snap briefing.Snapshot) {
		_ = wc.writeJSON(wsServerMessage{Type: "state", State: &snap})
	})
	defer sess.Close()

	// Initial state so the client can render before the first action
	snap := sess.Snapshot()
	_ = wc.writeJSON(wsServerMessage{Type: "state", State: &snap})
	sp := ctl.Snapshot()
	_ = wc.writeJSON(wsServerMessage{Type: "speech", Speech: &sp})

	for {
		mt, data, rerr := conn.ReadMessage()
		if rerr != nil {
			return nil
		}
		if mt != websocket.TextMessage {
			continue
		}
		var m wsClientMessage
		if jerr := json.Unmarshal(data, &m); jerr != nil {
			logging.Debug("ws message unreadable", "err", jerr)
			continue
		}
		switch strings.ToLower(m.Type) {
		case "type":
			sess.Type(m.Query)
		case "submit":
			sess.Submit(m.Title)
		case "pick":
			if m.Candidate != nil {
				sess.PickSuggestion(*m.Candidate)
			}
		case "popular":
			sess.PickPopular(m.Title)
		case "dismiss":
			sess.DismissSuggestions()
		case "retry":
			sess.Retry()
		case "play":
			ctl.Toggle(sess.Snapshot().Summary)
		case "stop":
			ctl.Stop()
		case "bye":
			return nil
		}
	}
}
