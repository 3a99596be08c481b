package api

import (
	"net/http"
	"time"

	"github.com/filswan/go-swan-lib/logs"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/PaulSpaurgen/interface-v2/internal/models"
)

const (
	pingPeriod = 30 * time.Second
	pongWait   = 2 * pingPeriod
	writeWait  = 10 * time.Second
)

var upgrade = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// StateStream pushes a store snapshot to the client after every change. A client that
// reads slowly skips intermediate snapshots.
func (s *Server) StateStream(c *gin.Context) {
	conn, err := upgrade.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logs.GetLogger().Errorf("failed upgrade state stream, error: %+v", err)
		return
	}
	states, unsubscribe := s.store.Subscribe()
	client := newStreamClient(conn)
	defer func() {
		unsubscribe()
		client.Close()
	}()

	client.readMessage()
	client.writeStates(states)
}

type streamClient struct {
	conn   *websocket.Conn
	stopCh chan struct{}
}

func newStreamClient(conn *websocket.Conn) *streamClient {
	return &streamClient{conn: conn, stopCh: make(chan struct{})}
}

func (sc *streamClient) Close() {
	sc.conn.Close()
}

// readMessage drains the client side and notices when it goes away.
func (sc *streamClient) readMessage() {
	sc.conn.SetReadDeadline(time.Now().Add(pongWait))
	sc.conn.SetPongHandler(func(string) error {
		return sc.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		defer close(sc.stopCh)
		for {
			if _, _, err := sc.conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (sc *streamClient) writeStates(states <-chan models.State) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case state, ok := <-states:
			if !ok {
				return
			}
			sc.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sc.conn.WriteJSON(state); err != nil {
				logs.GetLogger().Warnf("state stream write failed, error: %v", err)
				return
			}
		case <-ticker.C:
			sc.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sc.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-sc.stopCh:
			return
		}
	}
}
