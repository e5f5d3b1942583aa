package handlers

import (
	"github.com/gofiber/fiber/v2"

	"game-match-system/services"
)

type amountRequest struct {
	Amount float64 `json:"amount"`
}

// SetupFinancialRoutes wires the wallet endpoints under /s/wallet.
func SetupFinancialRoutes(app *fiber.App, fin *services.FinancialService) {
	grp := app.Group("/s/wallet")

	grp.Get("/", func(c *fiber.Ctx) error {
		user, err := fin.GetUser(player(c).ID)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{
			"balance":      user.Balance,
			"kyc_status":   user.KycStatus,
			"games_played": user.GamesPlayed,
			"money_earned": user.MoneyEarned,
		})
	})

	grp.Post("/deposit", func(c *fiber.Ctx) error {
		var req amountRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
		}
		entry, err := fin.Deposit(player(c).ID, req.Amount)
		if err != nil {
			return fail(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(entry)
	})

	grp.Post("/withdraw", func(c *fiber.Ctx) error {
		var req amountRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
		}
		entry, err := fin.RequestWithdrawal(player(c).ID, req.Amount)
		if err != nil {
			return fail(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(entry)
	})

	grp.Get("/transactions", func(c *fiber.Ctx) error {
		page := c.QueryInt("page", 1)
		limit := c.QueryInt("limit", 20)
		entries, total, err := fin.History(player(c).ID, page, limit)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"transactions": entries, "total": total, "page": page})
	})
}
