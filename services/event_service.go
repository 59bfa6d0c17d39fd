// services/event_service.go
package services

import (
	"errors"
	"log"

	"merchant-onboarding-system/engine"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// EventService is the HTTP edge of the processing engine: event ingestion
// and player task actions.
type EventService struct {
	Engine *engine.Engine
}

func NewEventService(eng *engine.Engine) *EventService {
	return &EventService{Engine: eng}
}

// IngestEvent accepts one platform activity event and runs it through the
// engine. Replays of an already processed delivery return an empty success.
func (s *EventService) IngestEvent(c *fiber.Ctx) error {
	var ev engine.Event
	if err := c.BodyParser(&ev); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	res, err := s.Engine.ProcessEvent(c.Context(), ev)
	if err != nil {
		return s.engineError(c, err, "process event")
	}

	return c.JSON(res)
}

// SkipTask lets the authenticated merchant skip an optional task.
func (s *EventService) SkipTask(c *fiber.Ctx) error {
	externalID := c.Locals("user_id").(string)
	taskID := c.Params("id")
	if _, err := uuid.Parse(taskID); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid task ID"})
	}

	player, err := s.Engine.Players.GetOrCreateByExternalID(c.Context(), externalID)
	if err != nil {
		log.Printf("DB Error resolving player %s: %v", externalID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to resolve player"})
	}

	tp, err := s.Engine.SkipTask(c.Context(), player, taskID)
	if err != nil {
		return s.engineError(c, err, "skip task")
	}

	return c.JSON(fiber.Map{"message": "Task skipped", "task_progress": tp})
}

// engineError maps the engine's error taxonomy onto HTTP statuses.
func (s *EventService) engineError(c *fiber.Ctx, err error, op string) error {
	switch {
	case errors.Is(err, engine.ErrInvalidEvent):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, engine.ErrTaskNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Task not found"})
	case errors.Is(err, engine.ErrTaskRequired):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Task is required and cannot be skipped"})
	case errors.Is(err, engine.ErrAlreadyCompleted):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Task already completed"})
	case errors.Is(err, engine.ErrAlreadySkipped):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Task already skipped"})
	case errors.Is(err, engine.ErrConflictRetry):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Concurrent update, retry the request"})
	case errors.Is(err, engine.ErrStorageUnavailable):
		log.Printf("Storage error during %s: %v", op, err)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Storage unavailable, retry later"})
	default:
		log.Printf("Unexpected error during %s: %v", op, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal error"})
	}
}
