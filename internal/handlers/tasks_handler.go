package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/imrishuroy/go-idempotent-todo/internal/tasks"
	"github.com/imrishuroy/go-idempotent-todo/internal/validation"
)

type tasksHandler struct {
	svc      *tasks.Service
	validate *validatorv10.Validate
}

func (h *tasksHandler) create(c *gin.Context) {
	key, err := idempotencyKey(c)
	if err != nil {
		writeError(c, err)
		return
	}

	var in tasks.CreateInput
	if err := validation.BindJSON(c, &in); err != nil {
		writeError(c, err)
		return
	}

	resp, err := h.svc.CreateTask(c.Request.Context(), currentUser(c), in, key)
	if err != nil {
		writeError(c, err)
		return
	}
	if t, err := tasks.DecodeTask(resp); err == nil {
		c.Header("Location", "/api/v1/tasks/"+t.TaskID)
	}
	writeResponse(c, resp)
}

func (h *tasksHandler) update(c *gin.Context) {
	key, err := idempotencyKey(c)
	if err != nil {
		writeError(c, err)
		return
	}

	var in tasks.UpdateInput
	if err := validation.BindJSON(c, &in); err != nil {
		writeError(c, err)
		return
	}

	resp, err := h.svc.UpdateTask(c.Request.Context(), currentUser(c), c.Param("id"), in, key)
	if err != nil {
		writeError(c, err)
		return
	}
	writeResponse(c, resp)
}

func (h *tasksHandler) get(c *gin.Context) {
	t, err := h.svc.GetTask(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *tasksHandler) list(c *gin.Context) {
	var q validation.TaskListQuery
	if err := validation.BindQuery(c, &q, h.validate); err != nil {
		writeError(c, err)
		return
	}

	page, err := h.svc.ListTasks(c.Request.Context(), currentUser(c), tasks.ListFilter{
		Status:   q.Status,
		Priority: q.Priority,
		Category: q.Category,
		DueFrom:  q.DueFrom,
		DueTo:    q.DueTo,
		Limit:    q.Limit,
		Cursor:   q.Cursor,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// delete always answers 204; X-Delete-Result tells a real delete from a
// no-op.
func (h *tasksHandler) delete(c *gin.Context) {
	deleted, err := h.svc.DeleteTask(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	result := "deleted"
	if !deleted {
		result = "not_found"
	}
	c.Header("X-Delete-Result", result)
	c.Status(http.StatusNoContent)
}
