package server

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	paymentdomain "github.com/picklepickle/picklepay/internal/payment/domain"
)

const maxWebhookBody = 1 << 20

// HandlePaymentWebhook verifies and records a provider callback and answers
// in the provider's own acknowledgement format.
func (s *Server) HandlePaymentWebhook(c *gin.Context) {
	provider := strings.TrimSpace(c.Param("provider"))
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ack, err := s.webhookSvc.IngestWebhook(c.Request.Context(), provider, paymentdomain.WebhookRequest{
		Body:    payload,
		Query:   c.Request.URL.Query(),
		Headers: c.Request.Header,
	})
	if ack.HTTPStatus == 0 {
		if err == nil {
			c.Status(http.StatusNoContent)
			c.Writer.WriteHeaderNow()
			return
		}
		AbortWithError(c, err)
		return
	}
	if err != nil {
		// recorded for request logs only; the provider gets its own ack body
		_ = c.Error(err)
	}
	if ack.Body == nil {
		c.Status(ack.HTTPStatus)
		c.Writer.WriteHeaderNow()
		return
	}
	c.JSON(ack.HTTPStatus, ack.Body)
}
