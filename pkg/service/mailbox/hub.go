package mailbox

import (
	"context"
	"fmt"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/postbox-bot/postbox/pkg/domain/model/errs"
	"github.com/postbox-bot/postbox/pkg/domain/model/ticket"
)

// Hub delivers lifecycle events to subscribers synchronously, in
// registration order. A failing handler is reported through errs.Handle and
// never blocks delivery to the handlers after it.
type Hub struct {
	mu       sync.RWMutex
	handlers []ticket.EventHandler
}

func NewHub() *Hub {
	return &Hub{}
}

func (x *Hub) Subscribe(h ticket.EventHandler) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.handlers = append(x.handlers, h)
}

// Publish dispatches ev to every subscriber. It must be called without any
// manager lock held: handlers are free to call back into the manager.
func (x *Hub) Publish(ctx context.Context, ev ticket.Event) {
	x.mu.RLock()
	handlers := make([]ticket.EventHandler, len(x.handlers))
	copy(handlers, x.handlers)
	x.mu.RUnlock()

	for _, h := range handlers {
		if err := h(ctx, ev); err != nil {
			errs.Handle(ctx, goerr.Wrap(err, "event handler failed",
				goerr.V("event", fmt.Sprintf("%T", ev))))
		}
	}
}
