package model

// Event is an inbound actor event handed over by the chat transport.
// The four shapes mirror what transports can deliver: free text, a shared
// contact card, a shared location, and an inline-button press.
type Event interface {
	Actor() int64
}

// TextMessage is a free-text message.
type TextMessage struct {
	ActorID int64
	Text    string
}

func (e TextMessage) Actor() int64 { return e.ActorID }

// ContactShared carries the phone number from a shared contact card.
type ContactShared struct {
	ActorID int64
	Phone   string
}

func (e ContactShared) Actor() int64 { return e.ActorID }

// LocationShared carries a shared geo-point.
type LocationShared struct {
	ActorID int64
	Lat     float64
	Lon     float64
}

func (e LocationShared) Actor() int64 { return e.ActorID }

// ButtonPressed carries an inline-button payload in verb:arg form,
// e.g. "pick_sub:gold", "select:2041", "rate:2041:5".
type ButtonPressed struct {
	ActorID int64
	Payload string
}

func (e ButtonPressed) Actor() int64 { return e.ActorID }
