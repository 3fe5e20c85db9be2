package handler

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/khidmaty/khidmaty/internal/model"
)

// EventDispatcher runs one inbound event through the dialogue engine.
type EventDispatcher interface {
	Handle(ctx context.Context, ev model.Event) []model.Reply
}

// WebhookEvent is the transport-agnostic inbound payload. The chat-platform
// adapter translates its update format into one of the four event types.
type WebhookEvent struct {
	Type    string  `json:"type" validate:"required,oneof=text contact location button"`
	ActorID int64   `json:"actor_id" validate:"required,gt=0"`
	Text    string  `json:"text,omitempty"`
	Phone   string  `json:"phone,omitempty"`
	Lat     float64 `json:"lat,omitempty"`
	Lon     float64 `json:"lon,omitempty"`
	Payload string  `json:"payload,omitempty"`
}

// WebhookHandler handles inbound chat events.
type WebhookHandler struct {
	dispatcher EventDispatcher
	validator  *validator.Validate
}

// NewWebhookHandler creates a new WebhookHandler with the given dispatcher
// and validator.
func NewWebhookHandler(d EventDispatcher, v *validator.Validate) *WebhookHandler {
	return &WebhookHandler{dispatcher: d, validator: v}
}

// Receive handles POST /webhook requests. The response body carries the
// replies for the adapter to deliver back to the actor.
func (h *WebhookHandler) Receive(c *fiber.Ctx) error {
	var ev WebhookEvent
	if err := c.BodyParser(&ev); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(ev); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid event: " + err.Error()})
	}

	event, ok := ev.toEvent()
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown event type"})
	}

	replies := h.dispatcher.Handle(c.Context(), event)

	log.Debug().
		Int64("actor_id", ev.ActorID).
		Str("type", ev.Type).
		Int("replies", len(replies)).
		Msg("event dispatched")

	return c.JSON(fiber.Map{"replies": replies})
}

func (ev WebhookEvent) toEvent() (model.Event, bool) {
	switch ev.Type {
	case "text":
		return model.TextMessage{ActorID: ev.ActorID, Text: ev.Text}, true
	case "contact":
		return model.ContactShared{ActorID: ev.ActorID, Phone: ev.Phone}, true
	case "location":
		return model.LocationShared{ActorID: ev.ActorID, Lat: ev.Lat, Lon: ev.Lon}, true
	case "button":
		return model.ButtonPressed{ActorID: ev.ActorID, Payload: ev.Payload}, true
	}
	return nil, false
}
