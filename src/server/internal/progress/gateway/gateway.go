package progressgateway

import (
	"net/http"
	"time"

	"github.com/apex/log"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/veedubyou/vocal-separator/src/server/internal/errors/api"
	"github.com/veedubyou/vocal-separator/src/server/internal/errors/gateway"
	"github.com/veedubyou/vocal-separator/src/server/internal/progress/registry"
	"github.com/veedubyou/vocal-separator/src/shared/lib/cerr"
)

type Gateway struct {
	registry *registry.Registry
	upgrader websocket.Upgrader
}

func NewGateway(registry *registry.Registry, allowedOrigins []string) Gateway {
	return Gateway{
		registry: registry,
		upgrader: websocket.Upgrader{
			CheckOrigin: originChecker(allowedOrigins),
		},
	}
}

// Subscribe holds the connection open until the client goes away.
// Anything the client sends counts as a keep alive.
func (g Gateway) Subscribe(c echo.Context, clientID string) error {
	if clientID == "" {
		err := cerr.Error("Client ID is empty")
		apiErr := api.CommitError(err, api.BadRequestCode, "A client ID is required to subscribe to progress")
		return gateway.ErrorResponse(c, apiErr)
	}

	conn, err := g.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader has already responded to the client
		log.WithField("client_id", clientID).WithError(err).Warn("Failed to upgrade progress connection")
		return nil
	}

	channel := NewWebsocketChannel(conn)
	g.registry.Register(clientID, channel)

	logger := log.WithField("client_id", clientID)
	logger.Info("Progress subscriber connected")

	done := make(chan struct{})
	go g.keepAlive(channel, done)

	g.readUntilClosed(conn)
	close(done)

	g.registry.UnregisterChannel(clientID, channel)
	_ = channel.Close()
	logger.Info("Progress subscriber disconnected")

	return nil
}

func (g Gateway) readUntilClosed(conn *websocket.Conn) {
	extendDeadline := func() {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	}

	extendDeadline()
	conn.SetPongHandler(func(string) error {
		extendDeadline()
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		extendDeadline()
	}
}

func (g Gateway) keepAlive(channel *WebsocketChannel, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := channel.Ping(); err != nil {
				return
			}
		}
	}
}

func originChecker(allowedOrigins []string) func(r *http.Request) bool {
	allowed := map[string]bool{}
	for _, origin := range allowedOrigins {
		allowed[origin] = true
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowed["*"] || allowed[origin]
	}
}
