package registration

import (
	"time"

	"github.com/Nguyentram30/Real-time-student-activity-management-CI-CD-Pipeline-sub000/internal/activity"
	"github.com/Nguyentram30/Real-time-student-activity-management-CI-CD-Pipeline-sub000/internal/auth"

	"github.com/gofiber/fiber/v2"
)

var nowFn = time.Now

// RegisterRoutes mounts enrollment under /activities/:id and the rest under /registrations.
func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/activities/:id/registrations", authMiddleware, func(c *fiber.Ctx) error {
		reg, err := svc.Enroll(c.Context(), c.Params("id"), auth.CallerID(c))
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(reg)
	})

	g := r.Group("/registrations", authMiddleware)

	g.Get("/:id", func(c *fiber.Ctx) error {
		reg, a, err := svc.WithActivity(c.Context(), c.Params("id"))
		if err != nil {
			return err
		}
		caller := auth.CallerID(c)
		if caller != reg.ParticipantID && caller != a.OwnerID {
			return ErrNotParticipant
		}
		return c.JSON(reg)
	})

	g.Post("/:id/approve", func(c *fiber.Ctx) error {
		reg, err := svc.Approve(c.Context(), c.Params("id"), auth.CallerID(c))
		if err != nil {
			return err
		}
		return c.JSON(reg)
	})

	g.Post("/:id/reject", func(c *fiber.Ctx) error {
		var body ReasonInput
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		reg, err := svc.Reject(c.Context(), c.Params("id"), auth.CallerID(c), body.Reason)
		if err != nil {
			return err
		}
		return c.JSON(reg)
	})

	g.Post("/:id/evidence", func(c *fiber.Ctx) error {
		var body EvidenceInput
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		_, a, err := svc.WithActivity(c.Context(), c.Params("id"))
		if err != nil {
			return err
		}
		if activity.EvidenceDeadlinePassed(a, nowFn()) {
			return ErrDeadlinePassed
		}
		reg, err := svc.SubmitEvidence(c.Context(), c.Params("id"), auth.CallerID(c), body)
		if err != nil {
			return err
		}
		return c.JSON(reg)
	})

	g.Post("/:id/evidence/approve", func(c *fiber.Ctx) error {
		reg, err := svc.ApproveEvidence(c.Context(), c.Params("id"), auth.CallerID(c))
		if err != nil {
			return err
		}
		return c.JSON(reg)
	})

	g.Post("/:id/evidence/reject", func(c *fiber.Ctx) error {
		var body ReasonInput
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		reg, err := svc.RejectEvidence(c.Context(), c.Params("id"), auth.CallerID(c), body.Reason)
		if err != nil {
			return err
		}
		return c.JSON(reg)
	})
}
