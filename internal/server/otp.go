package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type otpIssueRequest struct {
	Email string `json:"email"`
}

type otpVerifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

func (s *Server) IssueOTP(c *gin.Context) {
	var req otpIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.otpSvc.Issue(c.Request.Context(), tenantKey(c), req.Email)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, http.StatusOK, resp)
}

func (s *Server) VerifyOTP(c *gin.Context) {
	var req otpVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.otpSvc.Verify(c.Request.Context(), tenantKey(c), req.Email, req.Code); err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, http.StatusOK, gin.H{"verified": true})
}
