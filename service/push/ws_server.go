package push

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/homeproapp/realtorapp-server-sub001/logger"
	"github.com/homeproapp/realtorapp-server-sub001/tools/safe"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxInboundSize = 1 << 10 // inbound frames are control-only
)

// WSServer upgrades HTTP requests to websocket sessions and drives the
// hub's registry from connection lifecycle. The push channel is
// server-to-client; inbound frames beyond pongs are ignored.
type WSServer struct {
	hub           *Hub
	sendQueueSize int
	upgrader      websocket.Upgrader
}

func NewWSServer(hub *Hub, sendQueueSize int) *WSServer {
	if sendQueueSize <= 0 {
		sendQueueSize = 64
	}
	return &WSServer{
		hub:           hub,
		sendQueueSize: sendQueueSize,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Serve upgrades the request and registers a session for userID. It
// returns once the pumps are started; teardown happens on read error.
func (s *WSServer) Serve(w http.ResponseWriter, r *http.Request, userID string) error {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	sess := NewSession(uuid.NewString(), userID, s.sendQueueSize)
	s.hub.Register(sess)
	logger.Infof("session connected conn=%s user=%s", sess.ConnID, userID)

	safe.Go(func() { s.writePump(ws, sess) })
	safe.Go(func() { s.readPump(ws, sess) })
	return nil
}

func (s *WSServer) readPump(ws *websocket.Conn, sess *Session) {
	defer func() {
		s.hub.Unregister(sess)
		_ = ws.Close()
		logger.Infof("session disconnected conn=%s user=%s", sess.ConnID, sess.UserID)
	}()
	ws.SetReadLimit(maxInboundSize)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *WSServer) writePump(ws *websocket.Conn, sess *Session) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = ws.Close()
	}()
	for {
		select {
		case <-sess.Done():
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = ws.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case payload := <-sess.Send:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
