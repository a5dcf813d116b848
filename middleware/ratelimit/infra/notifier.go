package infra

import (
	"sync"

	"middleware-gateway/middleware/ratelimit/domain"
)

// notifier faz fan-out de eventos sem bloquear quem publica.
type notifier struct {
	mu   sync.RWMutex
	next int
	subs map[int]chan domain.Event
}

func newNotifier() *notifier {
	return &notifier{subs: make(map[int]chan domain.Event)}
}

func (n *notifier) subscribe(buffer int) (<-chan domain.Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan domain.Event, buffer)

	n.mu.Lock()
	id := n.next
	n.next++
	n.subs[id] = ch
	n.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subs, id)
			close(ch)
			n.mu.Unlock()
		})
	}
	return ch, cancel
}

func (n *notifier) publish(ev domain.Event) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	for _, ch := range n.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
