package gateway

import (
	"github.com/coder/websocket"
	echo "github.com/labstack/echo/v5"
)

// UpgradeHandler upgrades an HTTP request to a WebSocket connection and
// runs its read loop until the socket closes; register it on an echo
// route (e.g. GET /ws) to mount the Live Session Gateway.
func (s *Server) UpgradeHandler(c *echo.Context) error {
	conn, err := websocket.Accept(c.Response(), c.Request(), &websocket.AcceptOptions{
		// Origin validation is deferred to the edge/ingress layer, matching
		// deferred-to-a-later-phase posture for this handler.
		InsecureSkipVerify: true,
	})
	if err != nil {
		return err
	}
	s.HandleConnection(c.Request().Context(), conn)
	return nil
}
