package activity

import (
	"context"

	"github.com/Nguyentram30/Real-time-student-activity-management-CI-CD-Pipeline-sub000/internal/auth"

	"github.com/gofiber/fiber/v2"
)

type reviewBody struct {
	Note string `json:"note"`
}

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	reviewerOnly := auth.RequireRole(auth.RoleReviewer)

	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		var req ProposeInput
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		req.OwnerID = auth.CallerID(c)
		a, err := svc.Propose(c.Context(), req)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(a)
	})

	r.Post("/conflicts", authMiddleware, func(c *fiber.Ctx) error {
		var q ConflictQuery
		if err := c.BodyParser(&q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		report, err := svc.CheckConflicts(c.Context(), q)
		if err != nil {
			return err
		}
		return c.JSON(report)
	})

	r.Get("/:id", authMiddleware, func(c *fiber.Ctx) error {
		a, err := svc.Get(c.Context(), c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(a)
	})

	r.Put("/:id", authMiddleware, func(c *fiber.Ctx) error {
		var req UpdateInput
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		a, err := svc.Update(c.Context(), c.Params("id"), auth.CallerID(c), req)
		if err != nil {
			return err
		}
		return c.JSON(a)
	})

	r.Delete("/:id", authMiddleware, func(c *fiber.Ctx) error {
		if err := svc.Delete(c.Context(), c.Params("id"), auth.CallerID(c)); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Post("/:id/clone", authMiddleware, func(c *fiber.Ctx) error {
		var req CloneInput
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		a, err := svc.Clone(c.Context(), c.Params("id"), auth.CallerID(c), req)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(a)
	})

	r.Post("/:id/submit", authMiddleware, func(c *fiber.Ctx) error {
		a, err := svc.Submit(c.Context(), c.Params("id"), auth.CallerID(c))
		if err != nil {
			return err
		}
		return c.JSON(a)
	})

	r.Post("/:id/revise", authMiddleware, func(c *fiber.Ctx) error {
		var body struct {
			Resubmit bool `json:"resubmit"`
		}
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&body); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
		}
		a, err := svc.Revise(c.Context(), c.Params("id"), auth.CallerID(c), body.Resubmit)
		if err != nil {
			return err
		}
		return c.JSON(a)
	})

	review := map[string]func(ctx context.Context, id, reviewerID, note string) (Activity, error){
		"approve":   svc.ReviewApprove,
		"condition": svc.ReviewApproveWithCondition,
		"need-edit": svc.ReviewNeedEdit,
		"reject":    svc.ReviewReject,
	}
	for path, apply := range review {
		apply := apply
		r.Post("/:id/review/"+path, authMiddleware, reviewerOnly, func(c *fiber.Ctx) error {
			var body reviewBody
			if len(c.Body()) > 0 {
				if err := c.BodyParser(&body); err != nil {
					return fiber.NewError(fiber.StatusBadRequest, err.Error())
				}
			}
			a, err := apply(c.Context(), c.Params("id"), auth.CallerID(c), body.Note)
			if err != nil {
				return err
			}
			return c.JSON(a)
		})
	}

	for _, action := range []Action{ActionOpen, ActionComplete, ActionCancel} {
		action := action
		r.Post("/:id/"+string(action), authMiddleware, func(c *fiber.Ctx) error {
			actor := Actor{ID: auth.CallerID(c), Reviewer: auth.CallerRole(c) == auth.RoleReviewer}
			a, err := svc.Advance(c.Context(), c.Params("id"), actor, action)
			if err != nil {
				return err
			}
			return c.JSON(a)
		})
	}
}
