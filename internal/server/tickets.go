package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	ticketdomain "github.com/smallbiznis/ticketflow/internal/ticket/domain"
)

func (s *Server) SaveTicket(c *gin.Context) {
	var req ticketdomain.SaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.BookingID = c.Param("bookingId")

	resp, err := s.ticketSvc.Save(c.Request.Context(), tenantKey(c), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, http.StatusOK, resp)
}

func (s *Server) GetTicket(c *gin.Context) {
	resp, err := s.ticketSvc.Get(c.Request.Context(), tenantKey(c), c.Param("bookingId"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, http.StatusOK, resp)
}

func (s *Server) DeleteTicket(c *gin.Context) {
	if err := s.ticketSvc.Delete(c.Request.Context(), tenantKey(c), c.Param("bookingId")); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
