package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/spinforge/platform/internal/domain"
	"github.com/spinforge/platform/internal/protocol"
)

// onlineWindow bounds how recent a session's last access must be to count as
// live in the online metric.
const onlineWindow = 60 * time.Second

const stopAckTimeout = 5 * time.Second

// State is the registry's introspection snapshot.
type State struct {
	Sessions int `json:"sessions"`
	Clients  int `json:"clients"`
}

type clientEntry struct {
	token string
	actor *Actor
}

type regEvent interface{ isRegEvent() }

type regRegister struct {
	token string
	id    int64
	actor *Actor
	ack   chan struct{}
}

type regRequest struct {
	token     string
	requestID string
	raw       json.RawMessage
	reply     chan *protocol.Envelope
}

type regDisconnect struct {
	id  int64
	ack chan bool
}

type regPing struct {
	token string
	ack   chan bool
}

type regOnline struct{ reply chan int }

type regState struct{ reply chan State }

type regDepth struct{ reply chan int }

type regWin struct {
	userID int64
	gain   *domain.TournamentGain
	ack    chan bool
}

type regClean struct{}

func (regRegister) isRegEvent()   {}
func (regRequest) isRegEvent()    {}
func (regDisconnect) isRegEvent() {}
func (regPing) isRegEvent()       {}
func (regOnline) isRegEvent()     {}
func (regState) isRegEvent()      {}
func (regDepth) isRegEvent()      {}
func (regWin) isRegEvent()        {}
func (regClean) isRegEvent()      {}

// Registry is the process-wide session index. It is itself an actor: the two
// maps are only touched by the run loop, so every operation is an event.
type Registry struct {
	mailbox  *Mailbox[regEvent]
	sessions map[string]int64
	clients  map[int64]clientEntry
	clean    time.Duration
	logger   *slog.Logger
	done     chan struct{}
}

// NewRegistry creates the registry. clean is both the sweep period and the
// idle lifetime.
func NewRegistry(clean time.Duration, logger *slog.Logger) *Registry {
	return &Registry{
		mailbox:  NewMailbox[regEvent](),
		sessions: make(map[string]int64),
		clients:  make(map[int64]clientEntry),
		clean:    clean,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start runs the registry loop and the idle sweeper until ctx is cancelled.
func (r *Registry) Start(ctx context.Context) {
	go r.run(ctx)
	go func() {
		ticker := time.NewTicker(r.clean)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				r.mailbox.Close()
				return
			case <-ticker.C:
				r.mailbox.Put(regClean{})
			}
		}
	}()
}

func (r *Registry) run(ctx context.Context) {
	defer close(r.done)
	for {
		ev, ok := r.mailbox.Take()
		if !ok {
			r.stopAll()
			return
		}
		switch e := ev.(type) {
		case regRegister:
			r.register(e)
		case regRequest:
			r.request(e)
		case regDisconnect:
			r.disconnect(e)
		case regPing:
			r.ping(e)
		case regOnline:
			e.reply <- r.online()
		case regState:
			e.reply <- State{Sessions: len(r.sessions), Clients: len(r.clients)}
		case regDepth:
			depth := 0
			for _, entry := range r.clients {
				depth += entry.actor.QueueLen()
			}
			e.reply <- depth
		case regWin:
			r.deliverWin(e)
		case regClean:
			r.sweep()
		}
	}
}

func stopActor(actor *Actor) bool {
	ack := make(chan bool, 1)
	if !actor.SubmitStop(ack) {
		return false
	}
	select {
	case ok := <-ack:
		return ok
	case <-time.After(stopAckTimeout):
		return false
	}
}

// register installs the session. A previous session for the same user is
// stopped synchronously before the new one becomes visible.
func (r *Registry) register(e regRegister) {
	if prev, ok := r.clients[e.id]; ok {
		delete(r.sessions, prev.token)
		if !stopActor(prev.actor) {
			r.logger.Warn("displaced session did not acknowledge stop", "user_id", e.id)
		}
	}
	r.sessions[e.token] = e.id
	r.clients[e.id] = clientEntry{token: e.token, actor: e.actor}
	if e.ack != nil {
		close(e.ack)
	}
}

func (r *Registry) request(e regRequest) {
	id, ok := r.sessions[e.token]
	if !ok {
		e.reply <- protocol.NewError(domain.ErrNotLoggedOn())
		return
	}
	entry, ok := r.clients[id]
	if !ok {
		e.reply <- protocol.NewError(domain.ErrNotLoggedOn())
		return
	}
	// enqueue here so requests reach the actor in the order the registry
	// received them; only the reply hop runs concurrently
	ch := entry.actor.SubmitRequest(e.requestID, e.raw)
	go func() {
		e.reply <- <-ch
	}()
}

func (r *Registry) disconnect(e regDisconnect) {
	entry, ok := r.clients[e.id]
	if !ok {
		e.ack <- false
		return
	}
	delete(r.sessions, entry.token)
	delete(r.clients, e.id)
	e.ack <- stopActor(entry.actor)
}

func (r *Registry) ping(e regPing) {
	id, ok := r.sessions[e.token]
	if !ok {
		e.ack <- false
		return
	}
	if entry, ok := r.clients[id]; ok {
		entry.actor.Touch()
		e.ack <- true
		return
	}
	e.ack <- false
}

func (r *Registry) online() int {
	cutoff := time.Now().Add(-onlineWindow)
	n := 0
	for _, entry := range r.clients {
		if entry.actor.LastAccess().After(cutoff) {
			n++
		}
	}
	return n
}

func (r *Registry) deliverWin(e regWin) {
	entry, ok := r.clients[e.userID]
	if !ok {
		e.ack <- false
		return
	}
	e.ack <- entry.actor.SubmitWin(e.gain)
}

// sweep stops sessions idle longer than the clean duration and drops orphan
// token bindings.
func (r *Registry) sweep() {
	cutoff := time.Now().Add(-r.clean)
	for id, entry := range r.clients {
		if entry.actor.LastAccess().After(cutoff) {
			continue
		}
		delete(r.sessions, entry.token)
		delete(r.clients, id)
		if !stopActor(entry.actor) {
			r.logger.Warn("idle session did not acknowledge stop", "user_id", id)
		}
	}
	for token, id := range r.sessions {
		if _, ok := r.clients[id]; !ok {
			delete(r.sessions, token)
		}
	}
}

func (r *Registry) stopAll() {
	for id, entry := range r.clients {
		if !stopActor(entry.actor) {
			r.logger.Warn("session did not acknowledge stop", "user_id", id)
		}
	}
	r.sessions = map[string]int64{}
	r.clients = map[int64]clientEntry{}
}

// Register installs a session and waits until it is visible.
func (r *Registry) Register(token string, id int64, actor *Actor) {
	ack := make(chan struct{})
	if !r.mailbox.Put(regRegister{token: token, id: id, actor: actor, ack: ack}) {
		return
	}
	<-ack
}

// Request routes a raw player request to the owning session and waits for the
// answer. Unknown tokens answer NOT_LOGGED_ON.
func (r *Registry) Request(token, requestID string, raw json.RawMessage) *protocol.Envelope {
	reply := make(chan *protocol.Envelope, 1)
	if !r.mailbox.Put(regRequest{token: token, requestID: requestID, raw: raw, reply: reply}) {
		return protocol.NewError(domain.ErrNotLoggedOn())
	}
	return <-reply
}

// Disconnect stops the user's session. Returns false when none exists or the
// actor did not acknowledge.
func (r *Registry) Disconnect(id int64) bool {
	ack := make(chan bool, 1)
	if !r.mailbox.Put(regDisconnect{id: id, ack: ack}) {
		return false
	}
	return <-ack
}

// Ping bumps the session's last access.
func (r *Registry) Ping(token string) bool {
	ack := make(chan bool, 1)
	if !r.mailbox.Put(regPing{token: token, ack: ack}) {
		return false
	}
	return <-ack
}

// Online counts sessions touched within the last minute.
func (r *Registry) Online() int {
	reply := make(chan int, 1)
	if !r.mailbox.Put(regOnline{reply: reply}) {
		return 0
	}
	return <-reply
}

// Snapshot returns the current index sizes.
func (r *Registry) Snapshot() State {
	reply := make(chan State, 1)
	if !r.mailbox.Put(regState{reply: reply}) {
		return State{}
	}
	return <-reply
}

// QueueDepth sums the mailbox backlog across all live sessions.
func (r *Registry) QueueDepth() int {
	reply := make(chan int, 1)
	if !r.mailbox.Put(regDepth{reply: reply}) {
		return 0
	}
	return <-reply
}

// DeliverWin routes a tournament win into the user's live session, if any.
func (r *Registry) DeliverWin(userID int64, gain *domain.TournamentGain) bool {
	ack := make(chan bool, 1)
	if !r.mailbox.Put(regWin{userID: userID, gain: gain, ack: ack}) {
		return false
	}
	return <-ack
}

// Sweep triggers one idle sweep out of schedule.
func (r *Registry) Sweep() { r.mailbox.Put(regClean{}) }

// Done is closed when the registry loop has exited and all sessions stopped.
func (r *Registry) Done() <-chan struct{} { return r.done }
