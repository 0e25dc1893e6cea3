package rewards

import "sync"

// Listener receives a copy of the ledger state after a mutation.
type Listener func(State)

// hub fans a state change out to every subscriber, synchronously and in
// subscription order.
type hub struct {
	mu        sync.Mutex
	nextID    uint64
	order     []uint64
	listeners map[uint64]Listener
}

func newHub() *hub {
	return &hub{listeners: make(map[uint64]Listener)}
}

// subscribe registers fn and returns a func that removes it. The returned
// func is safe to call more than once.
func (h *hub) subscribe(fn Listener) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	id := h.nextID
	h.listeners[id] = fn
	h.order = append(h.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.listeners, id)
			for i, v := range h.order {
				if v == id {
					h.order = append(h.order[:i], h.order[i+1:]...)
					break
				}
			}
		})
	}
}

// broadcast calls every listener with s. Listeners run outside the hub lock
// so they may subscribe, unsubscribe or read the ledger.
func (h *hub) broadcast(s State) {
	h.mu.Lock()
	fns := make([]Listener, 0, len(h.order))
	for _, id := range h.order {
		fns = append(fns, h.listeners[id])
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn(s.clone())
	}
}
