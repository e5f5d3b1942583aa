package handlers

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"game-match-system/events"
	"game-match-system/services"
)

// SetupWebsocket exposes the live event stream at /s/ws. A closed
// socket is treated as a disconnect: waiting rooms refund, live games
// forfeit.
func SetupWebsocket(app *fiber.App, hub *events.Hub, rooms *services.RoomService, tournaments *services.TournamentService) {
	app.Use("/s/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/s/ws", websocket.New(func(c *websocket.Conn) {
		userID, _ := c.Locals("user_id").(string)
		if userID == "" {
			c.Close()
			return
		}
		hub.Serve(userID, c)
		rooms.HandleDisconnect(userID)
		tournaments.HandleDisconnect(userID)
	}))
}
