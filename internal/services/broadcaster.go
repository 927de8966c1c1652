package services

// Event names pushed to live-round listeners.
const (
	EventRoundStart = "round_start"
	EventCountdown  = "countdown"
	EventSpinning   = "spinning"
	EventResults    = "results"
	EventRoundState = "round_state"
)

// Broadcaster fans one round event out to every connected listener. The
// websocket hub implements it; the orchestrator never sees individual
// connections.
type Broadcaster interface {
	Broadcast(event string, payload any)
}
