package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RunReminders runs one reminder sweep outside the daily schedule. The daily
// lock is not taken, so markers alone keep sends single.
func (s *Server) RunReminders(c *gin.Context) {
	if s.sweeper == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	summary, err := s.sweeper.Sweep(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.log.Info("reminder.manual_run",
		zap.Int("scanned", summary.Scanned),
		zap.Int("expiry_warnings", summary.ExpiryWarnings),
		zap.Int("monthly_notices", summary.MonthlyNotices),
		zap.Int("failed", summary.Failed),
	)
	respondData(c, http.StatusOK, summary)
}
