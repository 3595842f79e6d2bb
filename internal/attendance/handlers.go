package attendance

import (
	"github.com/Nguyentram30/Real-time-student-activity-management-CI-CD-Pipeline-sub000/internal/auth"

	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes mounts check-in and token management under /attendance/:activityID.
// limiter guards the participant check-in routes.
func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware, limiter fiber.Handler) {
	g := r.Group("/attendance/:activityID", authMiddleware)

	g.Post("/location", limiter, func(c *fiber.Ctx) error {
		var body LocationInput
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		rec, err := svc.CheckInByLocation(c.Context(), c.Params("activityID"), auth.CallerID(c), body)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(rec)
	})

	g.Post("/token", limiter, func(c *fiber.Ctx) error {
		var body TokenInput
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		rec, err := svc.CheckInByToken(c.Context(), c.Params("activityID"), auth.CallerID(c), body)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(rec)
	})

	g.Post("/manual", func(c *fiber.Ctx) error {
		var body ManualInput
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		rec, err := svc.CheckInManual(c.Context(), c.Params("activityID"), auth.CallerID(c), body)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(rec)
	})

	g.Get("/", func(c *fiber.Ctx) error {
		list, err := svc.List(c.Context(), c.Params("activityID"), auth.CallerID(c))
		if err != nil {
			return err
		}
		return c.JSON(list)
	})

	g.Post("/tokens", func(c *fiber.Ctx) error {
		var body IssueTokenInput
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&body); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
		}
		tok, err := svc.IssueVerificationToken(c.Context(), c.Params("activityID"), auth.CallerID(c), body)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(tok)
	})

	g.Delete("/tokens", func(c *fiber.Ctx) error {
		if err := svc.RevokeVerificationToken(c.Context(), c.Params("activityID"), auth.CallerID(c)); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}
