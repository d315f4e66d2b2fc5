package tracing

import (
	"context"
	"errors"
	"strings"

	dbutil "github.com/picklepickle/picklepay/pkg/db"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
)

var blockedAttributeKeys = []string{"secret", "signature", "mac", "hash", "payload", "account_id", "token"}

// ExtractContext pulls upstream trace context from inbound headers.
func ExtractContext(ctx context.Context, carrier propagation.TextMapCarrier) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}

// SafeAttributes drops attributes whose keys may carry provider secrets.
func SafeAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		key := strings.ToLower(string(attr.Key))
		blocked := false
		for _, word := range blockedAttributeKeys {
			if strings.Contains(key, word) {
				blocked = true
				break
			}
		}
		if !blocked {
			out = append(out, attr)
		}
	}
	return out
}

// SafeError reduces storage errors to their operation so SQL text stays out of spans.
func SafeError(err error) error {
	if err == nil {
		return nil
	}
	var ioErr *dbutil.IOError
	if errors.As(err, &ioErr) {
		return errors.New("storage " + ioErr.Op)
	}
	return err
}
