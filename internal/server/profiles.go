package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	profiledomain "github.com/smallbiznis/ticketflow/internal/profile/domain"
)

func (s *Server) SaveProfile(c *gin.Context) {
	var req profiledomain.SaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.UID = c.Param("uid")

	resp, err := s.profileSvc.Save(c.Request.Context(), tenantKey(c), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, http.StatusOK, resp)
}

func (s *Server) GetProfile(c *gin.Context) {
	resp, err := s.profileSvc.Get(c.Request.Context(), tenantKey(c), c.Param("uid"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, http.StatusOK, resp)
}

func (s *Server) GetSubscription(c *gin.Context) {
	resp, err := s.subscriptionSvc.Get(c.Request.Context(), tenantKey(c), c.Param("uid"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, http.StatusOK, resp)
}
