package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/FocuswithJustin/TulsiPress/internal/logging"
)

const (
	writeWait = 10 * time.Second
	readWait  = 60 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The preview server binds to localhost for a single editor; no
		// cross-origin state exists to protect.
		return true
	},
}

// handleSocket runs the editing loop over one websocket connection: each
// client message is a PreviewRequest, each reply a PreviewResponse.
func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxContentBytes)
	logging.WebSocketEvent("connected", int(s.clients.Add(1)), "remote", r.RemoteAddr)
	defer func() {
		logging.WebSocketEvent("disconnected", int(s.clients.Add(-1)))
	}()

	for {
		conn.SetReadDeadline(time.Now().Add(readWait))
		var req PreviewRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Warn("preview socket closed unexpectedly", "error", err)
			}
			return
		}

		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(s.preview(req)); err != nil {
			logging.Error("preview socket write failed", "error", err)
			return
		}
	}
}
