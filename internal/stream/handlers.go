package stream

import (
	"github.com/Nguyentram30/Real-time-student-activity-management-CI-CD-Pipeline-sub000/internal/auth"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

const ReviewerAudience = "reviewers"

func UserAudience(userID string) string {
	return "user:" + userID
}

// Authorize admits callers to their own user audience and reviewers to the reviewer pool.
// It must run after auth.JWTMiddleware.
func Authorize(c *fiber.Ctx) error {
	audience := c.Params("audience")
	caller := auth.CallerID(c)
	switch {
	case audience == ReviewerAudience && auth.CallerRole(c) == auth.RoleReviewer:
	case caller != "" && audience == UserAudience(caller):
	default:
		return fiber.NewError(fiber.StatusForbidden, "audience not permitted")
	}
	return c.Next()
}

// RegisterRoutes exposes /ws/:audience. guards run before the upgrade.
func RegisterRoutes(r fiber.Router, hub *Hub, guards ...fiber.Handler) {
	r.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	handlers := append(guards, websocket.New(func(c *websocket.Conn) {
		client := hub.Register(c.Params("audience"))
		defer hub.Unregister(client)

		done := make(chan struct{})
		go func() {
			defer close(done)
			for msg := range client.Send {
				if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
					return
				}
			}
		}()

		for {
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
		hub.Unregister(client)
		<-done
	}))
	r.Get("/ws/:audience", handlers...)
}
