package live

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// The feed is broadcast-only, so cross-origin subscribers are allowed.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// WSHandler upgrades the request and keeps the socket attached to the
// hub until the peer goes away. Incoming frames are drained and
// discarded; the feed has no client-to-server protocol.
func WSHandler(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("[ws] upgrade failed: %v", err)
			return
		}

		hub.AddWS(ws)
		hub.WelcomeWS(ws)
		log.Printf("[ws] subscriber attached: %s", ws.RemoteAddr())

		defer func() {
			hub.RemoveWS(ws)
			log.Printf("[ws] subscriber detached: %s", ws.RemoteAddr())
		}()

		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}
}
