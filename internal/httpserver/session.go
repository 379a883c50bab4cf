package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rcmarket/marketplace/internal/domain"
	"github.com/rcmarket/marketplace/internal/session"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type passwordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
}

type sessionSnapshot struct {
	Authenticated bool             `json:"authenticated"`
	User          *domain.Identity `json:"user"`
}

func (h *handler) register(c *gin.Context) {
	var req session.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid body")
		return
	}
	reg, err := h.deps.Session.Register(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, reg)
}

func (h *handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "email and password are required")
		return
	}
	identity, err := h.deps.Session.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		var (
			authErr  *session.AuthError
			internal *session.InternalError
		)
		if errors.As(err, &authErr) && !errors.As(err, &internal) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": authErr.Message})
			return
		}
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": identity})
}

func (h *handler) logout(c *gin.Context) {
	h.deps.Session.Logout(c.Request.Context())
	c.Status(http.StatusNoContent)
}

func (h *handler) changePassword(c *gin.Context) {
	var req passwordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "currentPassword and newPassword are required")
		return
	}
	if err := h.deps.Session.ChangePassword(c.Request.Context(), req.CurrentPassword, req.NewPassword); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) me(c *gin.Context) {
	identity, ok := h.deps.Session.Resolve(c.Request.Context())
	if !ok {
		writeError(c, domain.ErrNotLoggedIn)
		return
	}
	c.JSON(http.StatusOK, identity)
}

func (h *handler) updateMe(c *gin.Context) {
	var patch session.ProfilePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, "invalid body")
		return
	}
	ctx := c.Request.Context()
	if err := h.deps.Session.UpdateProfile(ctx, patch); err != nil {
		writeError(c, err)
		return
	}
	identity, ok := h.deps.Session.CachedIdentity(ctx)
	if !ok {
		writeError(c, domain.ErrNotLoggedIn)
		return
	}
	c.JSON(http.StatusOK, identity)
}

func (h *handler) sessionState(c *gin.Context) {
	c.JSON(http.StatusOK, h.snapshot(c))
}

func (h *handler) refreshSession(c *gin.Context) {
	h.deps.Session.Resolve(c.Request.Context())
	c.JSON(http.StatusOK, h.snapshot(c))
}

// sessionEvents streams change notifications as server-sent events. Events carry
// only the topic; clients re-read /session on each one.
func (h *handler) sessionEvents(c *gin.Context) {
	changed := make(chan string, 8)
	unsubscribe := h.deps.Session.Subscribe(func(topic string) {
		select {
		case changed <- topic:
		default:
		}
	})
	defer unsubscribe()

	rid := c.GetString(requestIDKey)
	h.logger.WithField("request_id", rid).Debug("session stream opened")
	defer h.logger.WithField("request_id", rid).Debug("session stream closed")

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ctx := c.Request.Context()
	c.SSEvent("ready", session.ChangeTopic)
	c.Writer.Flush()
	for {
		select {
		case <-ctx.Done():
			return
		case topic := <-changed:
			c.SSEvent(topic, topic)
			c.Writer.Flush()
		}
	}
}

func (h *handler) snapshot(c *gin.Context) sessionSnapshot {
	ctx := c.Request.Context()
	snap := sessionSnapshot{Authenticated: h.deps.Session.IsAuthenticated(ctx)}
	if identity, ok := h.deps.Session.CachedIdentity(ctx); ok {
		snap.User = &identity
	}
	return snap
}
