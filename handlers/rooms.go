package handlers

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	"game-match-system/middleware"
	"game-match-system/services"
)

type createRoomRequest struct {
	GameType string  `json:"game_type"`
	Bet      float64 `json:"bet"`
}

type moveRequest struct {
	Move json.RawMessage `json:"move"`
}

// SetupRoomRoutes wires the casual match lifecycle under /s/rooms.
func SetupRoomRoutes(app *fiber.App, rooms *services.RoomService) {
	grp := app.Group("/s/rooms")

	grp.Post("/", func(c *fiber.Ctx) error {
		var req createRoomRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
		}
		room, err := rooms.CreateRoom(player(c), req.GameType, req.Bet)
		if err != nil {
			return fail(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"id":        room.ID,
			"game_type": room.GameType,
			"bet":       room.Bet,
		})
	})

	// hostless lobby rooms, claimed by their first joiner
	app.Post("/s/admin/rooms", func(c *fiber.Ctx) error {
		if !middleware.IsAdmin(c) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "admin only"})
		}
		var req createRoomRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
		}
		room, err := rooms.CreateOpenRoom(req.GameType, req.Bet)
		if err != nil {
			return fail(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"id":        room.ID,
			"game_type": room.GameType,
			"bet":       room.Bet,
		})
	})

	grp.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"rooms": rooms.ListRooms()})
	})

	grp.Get("/:id", func(c *fiber.Ctx) error {
		state, err := rooms.GetState(c.Params("id"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(state)
	})

	grp.Post("/:id/join", func(c *fiber.Ctx) error {
		state, err := rooms.JoinRoom(c.Params("id"), player(c))
		if err != nil {
			return fail(c, err)
		}
		if state == nil {
			return c.JSON(fiber.Map{"status": "waiting"})
		}
		return c.JSON(state)
	})

	grp.Post("/:id/move", func(c *fiber.Ctx) error {
		var req moveRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
		}
		state, err := rooms.MakeMove(c.Params("id"), player(c).ID, req.Move)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(state)
	})

	grp.Post("/:id/rematch", func(c *fiber.Ctx) error {
		if err := rooms.OfferRematch(c.Params("id"), player(c).ID); err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"status": "offered"})
	})

	grp.Post("/:id/rematch/accept", func(c *fiber.Ctx) error {
		state, err := rooms.AcceptRematch(c.Params("id"), player(c).ID)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(state)
	})

	grp.Post("/:id/leave", func(c *fiber.Ctx) error {
		if err := rooms.LeaveRoom(c.Params("id"), player(c).ID); err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"status": "left"})
	})

	app.Get("/s/history", func(c *fiber.Ctx) error {
		page := c.QueryInt("page", 1)
		limit := c.QueryInt("limit", 20)
		history, total, err := rooms.HistoryFor(player(c).ID, page, limit)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"history": history, "total": total, "page": page})
	})
}
