package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	paymentdomain "github.com/picklepickle/picklepay/internal/payment/domain"
)

func (s *Server) OpenPayment(c *gin.Context) {
	var req paymentdomain.OpenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	payment, err := s.paymentSvc.Open(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Set("payment_id", payment.ID)
	c.JSON(http.StatusCreated, gin.H{"data": payment})
}

func (s *Server) GetPayment(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	c.Set("payment_id", id)

	view, err := s.paymentSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": view})
}

func (s *Server) ReconcilePayment(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	c.Set("payment_id", id)

	payment, err := s.paymentSvc.Reconcile(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": payment})
}

// ConfirmReturn takes the browser-return hint. The success flag is never trusted;
// the payment is only queued for a provider status query.
func (s *Server) ConfirmReturn(c *gin.Context) {
	var req paymentdomain.ConfirmReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	payment, err := s.paymentSvc.ConfirmReturn(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Set("payment_id", payment.ID)
	c.JSON(http.StatusAccepted, gin.H{"data": gin.H{
		"payment_id": payment.ID,
		"status":     payment.Status,
	}})
}

func (s *Server) ListAnomalies(c *gin.Context) {
	includeResolved, err := parseOptionalBool(c.Query("include_resolved"))
	if err != nil {
		AbortWithError(c, newValidationError("include_resolved", "invalid_include_resolved", "include_resolved must be a boolean"))
		return
	}
	limit, err := parseOptionalInt(c.Query("limit"))
	if err != nil {
		AbortWithError(c, newValidationError("limit", "invalid_limit", "limit must be a non-negative integer"))
		return
	}

	req := paymentdomain.ListAnomaliesRequest{PaymentID: strings.TrimSpace(c.Query("payment_id"))}
	if includeResolved != nil {
		req.IncludeResolved = *includeResolved
	}
	if limit != nil {
		req.Limit = *limit
	}

	anomalies, err := s.paymentSvc.ListAnomalies(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": anomalies})
}

type resolveAnomalyRequest struct {
	Note string `json:"note"`
}

func (s *Server) ResolveAnomaly(c *gin.Context) {
	id, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid anomaly id"))
		return
	}
	var req resolveAnomalyRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	anomaly, err := s.paymentSvc.ResolveAnomaly(c.Request.Context(), id, req.Note)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": anomaly})
}
