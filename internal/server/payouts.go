package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) ListTransferable(c *gin.Context) {
	limit, err := parseOptionalInt(c.Query("limit"))
	if err != nil {
		AbortWithError(c, newValidationError("limit", "invalid_limit", "limit must be a non-negative integer"))
		return
	}
	n := 0
	if limit != nil {
		n = *limit
	}

	splits, err := s.splitSvc.ListTransferable(c.Request.Context(), n)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": splits})
}

type recordTransferRequest struct {
	ProviderTransferID string `json:"provider_transfer_id"`
}

func (s *Server) RecordTransfer(c *gin.Context) {
	id, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid split id"))
		return
	}
	var req recordTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	split, err := s.splitSvc.RecordTransfer(c.Request.Context(), id, req.ProviderTransferID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": split})
}

type recordTransferFailureRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) RecordTransferFailure(c *gin.Context) {
	id, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid split id"))
		return
	}
	var req recordTransferFailureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	split, err := s.splitSvc.RecordTransferFailure(c.Request.Context(), id, req.Reason)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": split})
}
