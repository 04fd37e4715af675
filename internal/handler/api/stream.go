package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	models "SignalDesk/internal/domain/models"
	xhttp "SignalDesk/pkg/http"
	xlogger "SignalDesk/pkg/logger"
)

type streamConfig struct {
	upgrader  websocket.Upgrader
	writeWait time.Duration
	pingEvery time.Duration
	buffer    int
}

func defaultStreamConfig() streamConfig {
	return streamConfig{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		writeWait: 10 * time.Second,
		pingEvery: 30 * time.Second,
		buffer:    32,
	}
}

// Stream upgrades to a WebSocket, sends the current state and then every state and
// notice event until either side goes away.
func (h *DashboardHandler) Stream(c echo.Context) error {
	req := &models.StreamRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	o, err := h.hub.Get(c.Request().Context(), req.Pair, bearerToken(c))
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.UnavailableError("dashboard is unavailable").WithError(err))
	}

	conn, err := h.stream.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already replied with an HTTP error.
		h.logger.Debug("websocket upgrade failed", xlogger.Error(err))
		return nil
	}
	defer conn.Close()

	events, unsubscribe := o.Subscribe(h.stream.buffer)
	defer unsubscribe()

	state := o.Snapshot()
	if err := h.write(conn, models.Event{Type: models.EventState, State: &state}); err != nil {
		return nil
	}

	// Inbound frames are ignored; reading surfaces the peer closing.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(h.stream.pingEvery)
	defer ping.Stop()

	for {
		select {
		case <-gone:
			return nil
		case ev, ok := <-events:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "dashboard closed"),
					time.Now().Add(h.stream.writeWait))
				return nil
			}
			if err := h.write(conn, ev); err != nil {
				h.logger.Debug("websocket write failed", xlogger.String("pair", req.Pair), xlogger.Error(err))
				return nil
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.stream.writeWait)); err != nil {
				return nil
			}
		}
	}
}

func (h *DashboardHandler) write(conn *websocket.Conn, ev models.Event) error {
	if err := conn.SetWriteDeadline(time.Now().Add(h.stream.writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(ev)
}
