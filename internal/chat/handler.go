package chat

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/servicehub/internal/account"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type Handler struct {
	relay *Relay
	hub   *Hub
}

func NewHandler(relay *Relay, hub *Hub) *Handler {
	return &Handler{relay: relay, hub: hub}
}

// ServeWS upgrades GET /ws to the live chat channel. The request must
// already carry an authenticated principal.
func (h *Handler) ServeWS(c echo.Context) error {
	p, err := account.PrincipalFrom(c)
	if err != nil {
		return err
	}

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := newClient(ws, h.hub, h.relay, p)
	go client.writePump()
	client.readPump(c.Request().Context())
	return nil
}

// History handles GET /chat/:userId/:otherUserId.
func (h *Handler) History(c echo.Context) error {
	p, err := account.PrincipalFrom(c)
	if err != nil {
		return err
	}
	msgs, err := h.relay.History(c.Request().Context(), p, c.Param("userId"), c.Param("otherUserId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, msgs)
}
