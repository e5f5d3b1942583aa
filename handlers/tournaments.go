package handlers

import (
	"github.com/gofiber/fiber/v2"

	"game-match-system/middleware"
	"game-match-system/services"
)

type createTournamentRequest struct {
	Name     string  `json:"name"`
	GameType string  `json:"game_type"`
	Size     int     `json:"size"`
	EntryFee float64 `json:"entry_fee"`
}

// SetupTournamentRoutes wires the bracket lifecycle under
// /s/tournaments. Creation and manual start are admin-only.
func SetupTournamentRoutes(app *fiber.App, tournaments *services.TournamentService) {
	grp := app.Group("/s/tournaments")

	grp.Post("/", func(c *fiber.Ctx) error {
		if !middleware.IsAdmin(c) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "admin role required"})
		}
		var req createTournamentRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
		}
		t, err := tournaments.CreateTournament(req.Name, req.GameType, req.Size, req.EntryFee)
		if err != nil {
			return fail(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(t)
	})

	grp.Get("/", func(c *fiber.Ctx) error {
		list, err := tournaments.ListTournaments(c.Query("status"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"tournaments": list})
	})

	grp.Get("/:id", func(c *fiber.Ctx) error {
		t, err := tournaments.GetTournament(c.Params("id"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(t)
	})

	grp.Post("/:id/join", func(c *fiber.Ctx) error {
		t, err := tournaments.JoinTournament(c.Params("id"), player(c))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(t)
	})

	grp.Post("/:id/start", func(c *fiber.Ctx) error {
		if !middleware.IsAdmin(c) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "admin role required"})
		}
		t, err := tournaments.StartTournament(c.Params("id"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(t)
	})

	grp.Post("/:id/subscribe", func(c *fiber.Ctx) error {
		if _, err := tournaments.GetTournament(c.Params("id")); err != nil {
			return fail(c, err)
		}
		tournaments.Subscribe(c.Params("id"), player(c).ID)
		return c.JSON(fiber.Map{"status": "subscribed"})
	})

	grp.Get("/:id/matches/:matchKey", func(c *fiber.Ctx) error {
		state, err := tournaments.GetMatchState(c.Params("id"), c.Params("matchKey"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(state)
	})

	grp.Post("/:id/matches/:matchKey/move", func(c *fiber.Ctx) error {
		var req moveRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
		}
		state, err := tournaments.MakeMatchMove(c.Params("id"), c.Params("matchKey"), player(c).ID, req.Move)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(state)
	})

	grp.Post("/:id/matches/:matchKey/forfeit", func(c *fiber.Ctx) error {
		if err := tournaments.ForfeitMatch(c.Params("id"), c.Params("matchKey"), player(c).ID); err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"status": "forfeited"})
	})
}
