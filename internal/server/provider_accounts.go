package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	accountdomain "github.com/picklepickle/picklepay/internal/provideraccount/domain"
)

type bindProviderAccountRequest struct {
	Provider  string `json:"provider"`
	AccountID string `json:"account_id"`
	Status    string `json:"status"`
	KycStatus string `json:"kyc_status"`
}

func (s *Server) BindProviderAccount(c *gin.Context) {
	var req bindProviderAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	account, err := s.accountSvc.Bind(c.Request.Context(), accountdomain.BindRequest{
		VenueID:   c.Param("venue_id"),
		Provider:  req.Provider,
		AccountID: req.AccountID,
		Status:    accountdomain.AccountStatus(req.Status),
		KycStatus: accountdomain.KycStatus(req.KycStatus),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": account})
}

func (s *Server) ListProviderAccounts(c *gin.Context) {
	accounts, err := s.accountSvc.List(c.Request.Context(), c.Param("venue_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": accounts})
}

type setProviderAccountStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) SetProviderAccountStatus(c *gin.Context) {
	var req setProviderAccountStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Status) == "" {
		AbortWithError(c, newValidationError("status", "invalid_status", "status is required"))
		return
	}

	account, err := s.accountSvc.SetStatus(c.Request.Context(), c.Param("venue_id"), c.Param("provider"), accountdomain.AccountStatus(req.Status))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": account})
}

type setProviderAccountKycRequest struct {
	KycStatus string `json:"kyc_status"`
}

func (s *Server) SetProviderAccountKyc(c *gin.Context) {
	var req setProviderAccountKycRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.KycStatus) == "" {
		AbortWithError(c, newValidationError("kyc_status", "invalid_kyc_status", "kyc_status is required"))
		return
	}

	account, err := s.accountSvc.SetKycStatus(c.Request.Context(), c.Param("venue_id"), c.Param("provider"), accountdomain.KycStatus(req.KycStatus))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": account})
}
