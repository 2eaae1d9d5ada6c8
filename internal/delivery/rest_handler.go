package delivery

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/EAniwa/legacylancers-sub002/internal/domain"
)

// handleConversationOnline reports which users currently have a live
// connection in the conversation's room, with their visible presence.
func (s *Server) handleConversationOnline(c *fiber.Ctx) error {
	convID := c.Params("conversation_id")
	if _, err := uuid.Parse(convID); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid conversation ID",
		})
	}

	occupants := s.manager.RoomOccupants(convID)
	entries, err := s.presence.BulkGet(c.Context(), occupants)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to read presence",
		})
	}

	users := make([]fiber.Map, 0, len(entries))
	for _, e := range entries {
		users = append(users, fiber.Map{
			"user_id":   e.UserID,
			"status":    e.VisibleStatus(),
			"is_typing": e.IsTyping() && e.VisibleStatus() != domain.StatusOffline,
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"conversation_id": convID,
			"online_count":    len(users),
			"users":           users,
		},
	})
}
