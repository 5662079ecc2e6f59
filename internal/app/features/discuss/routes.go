// internal/app/features/discuss/routes.go
package discuss

import (
	"github.com/dalemusser/coursediscuss/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns the router for the discussion endpoints, mounted at /discuss.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Use(sm.RequireSignedIn)

	r.Post("/discussions", h.CreateDiscussion)
	r.Get("/discussions/{discussionId}", h.DisplayDiscussion)
	r.Post("/posts", h.CreatePost)
	r.Get("/reply-form", h.ReplyForm)
	r.Get("/page", h.Page)

	return r
}
