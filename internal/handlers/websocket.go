package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/swiftparcel/parcel-backend/internal/services"
	"github.com/swiftparcel/parcel-backend/pkg/response"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler upgrades an authenticated connection and subscribes it to
// live status updates for the caller's parcels.
func WebSocketHandler(hub *services.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			response.Error(c, 400, "Failed to upgrade connection")
			return
		}

		hub.NewClient(userId, conn)
	}
}
