package tracing

import (
	"errors"
	"testing"

	dbutil "github.com/picklepickle/picklepay/pkg/db"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestSafeAttributesDropsSecrets(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("http.route", "/webhooks/:provider"),
		attribute.String("vnp_SecureHash", "abc"),
		attribute.String("provider_account_id", "123"),
	)
	assert.Len(t, attrs, 1)
	assert.Equal(t, attribute.Key("http.route"), attrs[0].Key)
}

func TestSafeErrorHidesStorageDetail(t *testing.T) {
	err := SafeError(dbutil.WrapIO("insert event", errors.New("pq: password authentication failed")))
	assert.EqualError(t, err, "storage insert event")
	assert.Nil(t, SafeError(nil))
}
