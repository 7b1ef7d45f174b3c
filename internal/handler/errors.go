package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/fitagenda/fitagenda/internal/model"
)

// writeError translates the domain error taxonomy into the JSON error
// envelope. Nothing below here ever reaches the client as a raw error:
// validation failures render inline field errors, conflicts carry the
// alternatives prompt, stale references become a refresh hint.
func writeError(c *fiber.Ctx, err error) error {
	var verr *model.ValidationError
	if errors.As(err, &verr) {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": fiber.Map{
				"type":    "validation",
				"message": verr.Error(),
				"fields":  verr.Fields,
			},
		})
	}

	var cerr *model.ConflictError
	if errors.As(err, &cerr) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": fiber.Map{
				"type":        "conflict",
				"message":     cerr.Error(),
				"conflicts":   cerr.Conflicts,
				"suggestions": cerr.Suggestions,
			},
		})
	}

	var nferr *model.NotFoundError
	if errors.As(err, &nferr) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": fiber.Map{
				"type":    "not_found",
				"message": nferr.Error(),
			},
		})
	}

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": fiber.Map{
			"type":    "internal",
			"message": "internal server error",
		},
	})
}
