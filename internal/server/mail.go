package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListMailErrors surfaces queued mail that exhausted delivery.
func (s *Server) ListMailErrors(c *gin.Context) {
	page, err := bindPagination(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.mailSvc.ListErrored(c.Request.Context(), tenantKey(c), page)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, http.StatusOK, resp)
}
