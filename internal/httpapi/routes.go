package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ayushkr19/charades-backend/internal/hub"
	"github.com/ayushkr19/charades-backend/internal/store"
	"github.com/ayushkr19/charades-backend/internal/ws"
)

func SetupRoutes(h *hub.Hub, transport *ws.OutboxTransport, auth ws.Authorizer, directory *store.Directory, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", Healthz)
	r.Post("/roster", PutRosterEntry(directory, log))
	r.Get("/ws", ws.Handler(h, transport, auth, log))
	return r
}
