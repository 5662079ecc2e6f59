// internal/app/features/logout/handler.go
package logout

import (
	"net/http"

	"github.com/dalemusser/coursediscuss/internal/app/system/auth"
	"go.uber.org/zap"
)

type Handler struct {
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	// ReturnURL is where the browser goes once the cookie is cleared.
	ReturnURL string
}

func NewHandler(sessionMgr *auth.SessionManager, returnURL string, logger *zap.Logger) *Handler {
	if returnURL == "" {
		returnURL = "/"
	}
	return &Handler{
		Log:        logger,
		SessionMgr: sessionMgr,
		ReturnURL:  returnURL,
	}
}

// ServeLogout handles GET /logout. It only drops this service's session;
// the LMS session is left alone.
func (h *Handler) ServeLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.SessionMgr.SignOut(w, r); err != nil {
		h.Log.Error("logout: save session", zap.Error(err))
	}

	if r.Header.Get("HX-Request") != "" {
		w.Header().Set("HX-Redirect", h.ReturnURL)
		w.WriteHeader(http.StatusOK)
		return
	}

	http.Redirect(w, r, h.ReturnURL, http.StatusSeeOther)
}
