package domain

import "time"

type EventKind string

const (
	EventConsumed EventKind = "consumed"
	EventRejected EventKind = "rejected"
	EventReset    EventKind = "reset"
)

// Event é emitido a cada mudança observável de um contador, para quem preferir
// ser notificado em vez de fazer polling de Status.
type Event struct {
	Kind   EventKind `json:"kind"`
	Status Status    `json:"status"`
	At     time.Time `json:"at"`
}
