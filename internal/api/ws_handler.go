package api

import (
	"github.com/gin-gonic/gin"
)

// ServeWS upgrades the connection and subscribes it to the caller's
// unviewed-progress summaries. It blocks until the socket closes.
func (h *Handler) ServeWS(c *gin.Context) {
	caller := requester(c)
	if err := h.hub.Serve(c.Writer, c.Request, caller.ID, caller.Role); err != nil {
		_ = c.Error(err)
	}
}
