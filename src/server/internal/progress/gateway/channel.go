package progressgateway

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gorilla/websocket"
	separationentity "github.com/veedubyou/vocal-separator/src/server/internal/separation/entity"
	"github.com/veedubyou/vocal-separator/src/server/internal/progress/registry"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

var _ registry.Channel = &WebsocketChannel{}

// WebsocketChannel serializes writes, gorilla connections allow one writer at a time
type WebsocketChannel struct {
	conn      *websocket.Conn
	writeLock sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func NewWebsocketChannel(conn *websocket.Conn) *WebsocketChannel {
	return &WebsocketChannel{conn: conn}
}

func (w *WebsocketChannel) Send(event separationentity.ProgressEvent) error {
	w.writeLock.Lock()
	defer w.writeLock.Unlock()

	if err := w.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return errors.Wrap(err, "Failed to set write deadline")
	}

	if err := w.conn.WriteJSON(event); err != nil {
		return errors.Wrap(err, "Failed to write progress event")
	}

	return nil
}

func (w *WebsocketChannel) Ping() error {
	w.writeLock.Lock()
	defer w.writeLock.Unlock()

	err := w.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
	if err != nil {
		return errors.Wrap(err, "Failed to ping subscriber")
	}

	return nil
}

func (w *WebsocketChannel) Close() error {
	w.closeOnce.Do(func() {
		w.writeLock.Lock()
		_ = w.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		w.writeLock.Unlock()

		w.closeErr = w.conn.Close()
	})

	return w.closeErr
}
