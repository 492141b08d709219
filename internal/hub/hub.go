package hub

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/ayushkr19/charades-backend/internal/session"
)

type HubMsg interface{ isHubMsg() }

// EnsureSession returns the meeting's session actor, creating it on
// first use.
type EnsureSession struct {
	MeetingID string
	Reply     chan *session.Session
}

type GetSession struct {
	MeetingID string
	Reply     chan *session.Session
}

type RemoveSession struct {
	MeetingID string
}

type ShutdownHub struct{}

func (EnsureSession) isHubMsg() {}
func (GetSession) isHubMsg()    {}
func (RemoveSession) isHubMsg() {}
func (ShutdownHub) isHubMsg()   {}

// Deps are handed to every session the hub creates.
type Deps struct {
	Registry  session.Registry
	Games     session.Games
	Names     session.Names
	Transport session.Transport
	Config    session.Config
	Log       *zap.Logger
	// NewRand lets tests seed each session deterministically.
	NewRand func() *rand.Rand
}

// Hub owns the meeting-id to session map. One goroutine drains the
// inbox, so session creation is serialized.
type Hub struct {
	inbox    chan HubMsg
	sessions map[string]*session.Session
	deps     Deps
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewHub(parent context.Context, deps Deps) *Hub {
	if deps.NewRand == nil {
		deps.NewRand = func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		}
	}
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:    make(chan HubMsg, 64),
		sessions: make(map[string]*session.Session),
		deps:     deps,
		ctx:      ctx,
		cancel:   cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case EnsureSession:
				msg.Reply <- h.ensure(msg.MeetingID)

			case GetSession:
				msg.Reply <- h.sessions[msg.MeetingID] // may be nil

			case RemoveSession:
				if s := h.sessions[msg.MeetingID]; s != nil {
					s.Inbox() <- session.Shutdown{}
				}
				delete(h.sessions, msg.MeetingID)

			case ShutdownHub:
				for _, s := range h.sessions {
					s.Inbox() <- session.Shutdown{}
				}
				clear(h.sessions)
				h.cancel()
			}
		}
	}
}

func (h *Hub) ensure(meetingID string) *session.Session {
	if s := h.sessions[meetingID]; s != nil {
		return s
	}
	s := session.New(h.ctx, meetingID,
		h.deps.Registry, h.deps.Games, h.deps.Names, h.deps.Transport,
		h.deps.Config, h.deps.NewRand(), h.deps.Log)
	h.sessions[meetingID] = s
	return s
}
