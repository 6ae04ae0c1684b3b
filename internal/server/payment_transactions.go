package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/ticketflow/internal/lifecycle"
	paymentdomain "github.com/smallbiznis/ticketflow/internal/payment/domain"
	"go.uber.org/zap"
)

func (s *Server) SaveTransaction(c *gin.Context) {
	var req paymentdomain.SaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.TxnID = c.Param("txnId")

	resp, err := s.paymentSvc.Save(c.Request.Context(), tenantKey(c), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, http.StatusOK, resp)
}

func (s *Server) GetTransaction(c *gin.Context) {
	resp, err := s.paymentSvc.Get(c.Request.Context(), tenantKey(c), c.Param("txnId"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, http.StatusOK, resp)
}

// ListStuckTransactions lists successful payments whose lifecycle has not
// completed, oldest first.
func (s *Server) ListStuckTransactions(c *gin.Context) {
	page, err := bindPagination(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.paymentSvc.ListStuck(c.Request.Context(), tenantKey(c), page)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, http.StatusOK, resp)
}

func (s *Server) RedriveTransaction(c *gin.Context) {
	key := tenantKey(c)
	txnID := c.Param("txnId")

	res, err := s.lifecycle.Redrive(c.Request.Context(), key, txnID)
	if errors.Is(err, lifecycle.ErrRunFailed) {
		s.log.Warn("lifecycle.redrive.failed",
			zap.String("tenant_id", key.TenantID),
			zap.String("app_id", key.AppID),
			zap.String("txn_id", txnID),
			zap.String("step", string(res.Step)),
			zap.Error(err),
		)
		_ = c.Error(err)
		c.JSON(http.StatusBadGateway, gin.H{
			"success": false,
			"type":    "lifecycle_failed",
			"message": res.Error,
			"data":    res,
		})
		return
	}
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, http.StatusOK, res)
}
