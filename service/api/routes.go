package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tripchat/middleware"
	"tripchat/service/chat"
	"tripchat/service/store"
	"tripchat/tools/errs"
)

// MessageLister is the read side of message storage the history
// endpoint needs.
type MessageLister interface {
	ListByRoom(ctx context.Context, roomID string, limit int64) ([]*store.Message, error)
}

// Deps carries everything the HTTP surface touches.
type Deps struct {
	Verifier     chat.CredentialVerifier
	Gateway      *chat.Server
	Rooms        chat.RoomStore
	Messages     MessageLister
	HistoryLimit int64
}

// RegisterRoutes mounts the gateway and the REST surface on the engine.
func RegisterRoutes(r *gin.Engine, d Deps) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ws", d.Gateway.HandleWS)

	authed := r.Group("/", middleware.Auth(d.Verifier))
	authed.GET("/rooms/:roomId/messages", listMessages(d))
}

// listMessages returns a room's recent messages, newest first. Only
// members may read history.
func listMessages(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"code": errs.AuthFailedError, "msg": "authentication failed"})
			return
		}
		roomID := c.Param("roomId")

		exists, err := d.Rooms.Exists(c.Request.Context(), roomID)
		if err != nil {
			writeError(c, err)
			return
		}
		if !exists {
			writeError(c, errs.ErrNotFound.WithDetail("room not found"))
			return
		}
		member, err := d.Rooms.IsMember(c.Request.Context(), roomID, identity.ID)
		if err != nil {
			writeError(c, err)
			return
		}
		if !member {
			writeError(c, errs.ErrForbidden.WithDetail("not a room member"))
			return
		}

		limit := d.HistoryLimit
		if raw := c.Query("limit"); raw != "" {
			n, perr := strconv.ParseInt(raw, 10, 64)
			if perr != nil || n <= 0 {
				writeError(c, errs.ErrArgs.WithDetail("limit must be a positive integer"))
				return
			}
			if limit == 0 || n < limit {
				limit = n
			}
		}

		msgs, err := d.Messages.ListByRoom(c.Request.Context(), roomID, limit)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"messages": msgs})
	}
}

func writeError(c *gin.Context, err error) {
	code := errs.CodeOf(err)
	status := http.StatusInternalServerError
	switch code {
	case errs.RecordNotFoundError:
		status = http.StatusNotFound
	case errs.ForbiddenError:
		status = http.StatusForbidden
	case errs.ArgsError:
		status = http.StatusBadRequest
	case errs.AuthFailedError:
		status = http.StatusUnauthorized
	case errs.StoreUnavailableError:
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"code": code, "msg": err.Error()})
}
