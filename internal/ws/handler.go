package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ayushkr19/charades-backend/internal/envelope"
	"github.com/ayushkr19/charades-backend/internal/hub"
	"github.com/ayushkr19/charades-backend/internal/session"
)

const (
	writeTimeout = 3 * time.Second
	readTimeout  = 10 * time.Minute
)

// Authorizer is the join-token gate executed before a connection is
// ever registered. The verdict is trusted verbatim; verification
// internals belong to the conferencing provider.
type Authorizer interface {
	Authorize(ctx context.Context, meetingID, attendeeID, joinToken string) bool
}

// AllowAll admits every connection; for local development only.
type AllowAll struct{}

func (AllowAll) Authorize(context.Context, string, string, string) bool { return true }

// Handler upgrades /ws?meetingId=&attendeeId=&joinToken= requests,
// registers the connection with the meeting's session actor, and pumps
// envelopes in both directions until the socket closes.
func Handler(h *hub.Hub, transport *OutboxTransport, auth Authorizer, log *zap.Logger) http.HandlerFunc {
	log = log.Named("ws")
	return func(w http.ResponseWriter, r *http.Request) {
		meetingID := r.URL.Query().Get("meetingId")
		attendeeID := r.URL.Query().Get("attendeeId")
		joinToken := r.URL.Query().Get("joinToken")
		if meetingID == "" || attendeeID == "" {
			http.Error(w, "missing meetingId or attendeeId", http.StatusBadRequest)
			return
		}
		if !auth.Authorize(r.Context(), meetingID, attendeeID, joinToken) {
			log.Info("connection denied",
				zap.String("meeting_id", meetingID),
				zap.String("attendee_id", attendeeID))
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		reply := make(chan *session.Session, 1)
		h.Inbox() <- hub.EnsureSession{MeetingID: meetingID, Reply: reply}
		sess := <-reply

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		connectionID := uuid.NewString()
		outbox := transport.Attach(connectionID)
		defer transport.Detach(connectionID)

		connected := make(chan error, 1)
		sess.Inbox() <- session.Connect{AttendeeID: attendeeID, ConnectionID: connectionID, Reply: connected}
		if err := <-connected; err != nil {
			// Registry down: the connect itself fails rather than
			// silently dropping the attendee.
			log.Error("register connection", zap.Error(err))
			conn.Close(websocket.StatusInternalError, "registry unavailable")
			return
		}
		defer func() {
			done := make(chan error, 1)
			sess.Inbox() <- session.Disconnect{AttendeeID: attendeeID, Reply: done}
			if err := <-done; err != nil {
				log.Warn("unregister connection", zap.Error(err))
			}
		}()

		log.Info("connected",
			zap.String("meeting_id", meetingID),
			zap.String("attendee_id", attendeeID),
			zap.String("connection_id", connectionID))

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for payload := range outbox {
				ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
				_ = conn.Write(ctx, websocket.MessageText, payload)
				cancel()
			}
		}()

		// Reader loop
		for {
			ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
			_, data, err := conn.Read(ctx)
			cancel()
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				return
			}

			env, err := envelope.Decode(data)
			if err != nil {
				log.Debug("rejected envelope", zap.Error(err))
				_ = conn.Write(r.Context(), websocket.MessageText,
					[]byte(`{"type":"chat-message","payload":{"message":"rejected: malformed message"}}`))
				continue
			}
			// The sender identity is the authenticated one, never the
			// claimed payload field.
			sess.Inbox() <- session.FromClient{Sender: attendeeID, Env: env}
		}
	}
}
