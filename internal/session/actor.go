package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/spinforge/platform/internal/domain"
	"github.com/spinforge/platform/internal/protocol"
)

type event interface{ isEvent() }

type requestEvent struct {
	requestID string
	raw       json.RawMessage
	reply     chan *protocol.Envelope
}

type balanceEvent struct{ amount int64 }

type winEvent struct{ gain *domain.TournamentGain }

type stopEvent struct{ ack chan bool }

func (requestEvent) isEvent() {}
func (balanceEvent) isEvent() {}
func (winEvent) isEvent()     {}
func (stopEvent) isEvent()    {}

// Actor is the single consumer of one session's mailbox. All session state
// lives behind it; other goroutines only enqueue events.
type Actor struct {
	mailbox    *Mailbox[event]
	dispatcher *Dispatcher
	logger     *slog.Logger
	lastAccess atomic.Int64
	done       chan struct{}
}

// NewActor wraps a dispatcher. Start must be called before any submit.
func NewActor(d *Dispatcher, logger *slog.Logger) *Actor {
	a := &Actor{
		mailbox:    NewMailbox[event](),
		dispatcher: d,
		logger:     logger,
		done:       make(chan struct{}),
	}
	a.Touch()
	return a
}

// Start runs the consumer loop in its own goroutine.
func (a *Actor) Start(ctx context.Context) {
	go a.run(ctx)
}

func (a *Actor) run(ctx context.Context) {
	defer close(a.done)
	for {
		ev, ok := a.mailbox.Take()
		if !ok {
			return
		}
		switch e := ev.(type) {
		case requestEvent:
			a.Touch()
			e.reply <- a.handle(ctx, e)
		case balanceEvent:
			a.dispatcher.proxy.SetBalance(e.amount)
		case winEvent:
			a.dispatcher.PushWin(e.gain)
		case stopEvent:
			a.dispatcher.Stop(ctx)
			a.mailbox.Close()
			a.drain()
			if e.ack != nil {
				e.ack <- true
			}
			return
		}
	}
}

// drain answers every request still queued behind the stop so no caller
// blocks on a dead session.
func (a *Actor) drain() {
	for {
		ev, ok := a.mailbox.Take()
		if !ok {
			return
		}
		if req, isReq := ev.(requestEvent); isReq {
			req.reply <- protocol.NewError(domain.ErrNotLoggedOn())
		}
	}
}

// handle shields the loop from panics in request processing; the session
// stays alive and answers with an error packet.
func (a *Actor) handle(ctx context.Context, e requestEvent) (env *protocol.Envelope) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("request panicked", "panic", r)
			env = protocol.NewError(domain.ErrInternal("request failed", nil))
		}
	}()
	return a.dispatcher.Handle(ctx, e.requestID, e.raw)
}

// QueueLen reports how many events wait in the mailbox.
func (a *Actor) QueueLen() int { return a.mailbox.Len() }

// Touch bumps the last-access instant.
func (a *Actor) Touch() { a.lastAccess.Store(time.Now().UnixNano()) }

// LastAccess returns the last instant this session was used.
func (a *Actor) LastAccess() time.Time { return time.Unix(0, a.lastAccess.Load()) }

// SubmitRequest enqueues a player request and returns the reply channel. A
// closed session answers NOT_LOGGED_ON immediately.
func (a *Actor) SubmitRequest(requestID string, raw json.RawMessage) <-chan *protocol.Envelope {
	reply := make(chan *protocol.Envelope, 1)
	if !a.mailbox.Put(requestEvent{requestID: requestID, raw: raw, reply: reply}) {
		reply <- protocol.NewError(domain.ErrNotLoggedOn())
	}
	return reply
}

// SubmitBalance replaces the cached wallet balance.
func (a *Actor) SubmitBalance(amount int64) bool {
	return a.mailbox.Put(balanceEvent{amount: amount})
}

// SubmitWin queues a tournament win for the next eligible spin.
func (a *Actor) SubmitWin(gain *domain.TournamentGain) bool {
	return a.mailbox.Put(winEvent{gain: gain})
}

// SubmitStop asks the actor to settle and terminate. The returned channel
// receives the acknowledgement; a nil ack means fire and forget.
func (a *Actor) SubmitStop(ack chan bool) bool {
	return a.mailbox.Put(stopEvent{ack: ack})
}

// Done is closed when the consumer loop has exited.
func (a *Actor) Done() <-chan struct{} { return a.done }
