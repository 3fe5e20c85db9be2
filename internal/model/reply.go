package model

// Button is an inline button: a label shown to the actor and an opaque
// payload echoed back as a ButtonPressed event.
type Button struct {
	Label   string `json:"label"`
	Payload string `json:"payload"`
}

// Reply is an outbound message for the transport to deliver. Presentation
// (keyboard layout, markup) is the transport's concern; the core only says
// what to send and which affordances to attach.
type Reply struct {
	ActorID int64      `json:"actor_id"`
	Text    string     `json:"text"`
	Buttons [][]Button `json:"buttons,omitempty"`

	// Hints for reply-keyboard affordances.
	RequestContact  bool     `json:"request_contact,omitempty"`
	RequestLocation bool     `json:"request_location,omitempty"`
	Choices         []string `json:"choices,omitempty"` // quick-reply options
}

// NewReply builds a plain text reply.
func NewReply(actorID int64, text string) Reply {
	return Reply{ActorID: actorID, Text: text}
}
