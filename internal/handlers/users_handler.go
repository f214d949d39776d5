package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-idempotent-todo/internal/tasks"
	"github.com/imrishuroy/go-idempotent-todo/internal/users"
	"github.com/imrishuroy/go-idempotent-todo/internal/validation"
)

type usersHandler struct {
	users  *users.Service
	tasks  *tasks.Service
	logger *zap.Logger
}

func (h *usersHandler) get(c *gin.Context) {
	u, err := h.users.GetUser(c.Request.Context(), currentUser(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *usersHandler) update(c *gin.Context) {
	key, err := idempotencyKey(c)
	if err != nil {
		writeError(c, err)
		return
	}

	var in users.ProfileInput
	if err := validation.BindJSON(c, &in); err != nil {
		writeError(c, err)
		return
	}

	resp, err := h.users.UpdateProfile(c.Request.Context(), currentUser(c), in, key)
	if err != nil {
		writeError(c, err)
		return
	}
	writeResponse(c, resp)
}

// delete removes the account. Task cleanup is done here, before the user
// item goes.
func (h *usersHandler) delete(c *gin.Context) {
	ctx := c.Request.Context()
	userID := currentUser(c)

	n, err := h.tasks.DeleteAllTasks(ctx, userID)
	if err != nil {
		writeError(c, err)
		return
	}
	if _, err := h.users.DeleteUser(ctx, userID); err != nil {
		writeError(c, err)
		return
	}
	h.logger.Info("account deleted", zap.String("user_id", userID), zap.Int("tasks_deleted", n))
	c.Status(http.StatusNoContent)
}
