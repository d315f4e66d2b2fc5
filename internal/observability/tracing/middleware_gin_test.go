package tracing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	obscontext "github.com/picklepickle/picklepay/internal/observability/context"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestGinMiddlewareTagsProvider(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinMiddleware())

	var seen string
	r.POST("/webhooks/:provider", func(c *gin.Context) {
		seen = obscontext.ProviderFromContext(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhooks/ZaloPay", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "zalopay", seen)
}

func TestRequestAttributes(t *testing.T) {
	ctx := obscontext.WithRequestID(context.Background(), "req-9")
	ctx = obscontext.WithProvider(ctx, "vnpay")

	attrs := requestAttributes(ctx, "GET", "/webhooks/:provider", 200, 15*time.Millisecond)

	got := map[attribute.Key]attribute.Value{}
	for _, a := range attrs {
		got[a.Key] = a.Value
	}
	assert.Equal(t, "vnpay", got["payment.provider"].AsString())
	assert.Equal(t, "req-9", got["request_id"].AsString())
	assert.Equal(t, int64(15), got["http.server_duration_ms"].AsInt64())
}
