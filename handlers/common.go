package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"game-match-system/games"
	"game-match-system/services"
)

// player builds the acting player from the gateway identity headers.
func player(c *fiber.Ctx) games.Player {
	id, _ := c.Locals("user_id").(string)
	name, _ := c.Locals("username").(string)
	return games.Player{ID: id, Username: name}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrInsufficientFunds):
		return fiber.StatusPaymentRequired
	case errors.Is(err, services.ErrKycRequired):
		return fiber.StatusForbidden
	case errors.Is(err, services.ErrNotParticipant):
		return fiber.StatusForbidden
	case errors.Is(err, services.ErrRoomFull),
		errors.Is(err, services.ErrAlreadyJoined),
		errors.Is(err, services.ErrTournamentFull),
		errors.Is(err, services.ErrTournamentState),
		errors.Is(err, services.ErrGameInProgress),
		errors.Is(err, services.ErrGameNotStarted),
		errors.Is(err, services.ErrRematchPending),
		errors.Is(err, services.ErrNoRematchOffer):
		return fiber.StatusConflict
	case errors.Is(err, services.ErrInvalidAmount), services.IsIllegalMove(err):
		return fiber.StatusBadRequest
	}
	return fiber.StatusInternalServerError
}

func fail(c *fiber.Ctx, err error) error {
	return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
}
