package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	tokendomain "github.com/smallbiznis/ticketflow/internal/token/domain"
)

func (s *Server) RegisterToken(c *gin.Context) {
	var req tokendomain.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.Role = c.Param("role")
	req.UserID = c.Param("userId")

	resp, err := s.tokenSvc.Register(c.Request.Context(), tenantKey(c), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, http.StatusOK, resp)
}

func (s *Server) GetToken(c *gin.Context) {
	role, err := tokendomain.ParseRole(c.Param("role"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.tokenSvc.Get(c.Request.Context(), tenantKey(c), role, c.Param("userId"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, http.StatusOK, resp)
}
