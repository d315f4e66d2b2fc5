package render

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/picklepickle/picklepay/internal/invoice/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "200,000 VND", FormatAmount(200_000, "vnd"))
	assert.Equal(t, "1,234,567 VND", FormatAmount(1_234_567, "VND"))
	assert.Equal(t, "999 VND", FormatAmount(999, "VND"))
	assert.Equal(t, "12.05 USD", FormatAmount(1_205, "USD"))
	assert.Equal(t, "1,000.00 USD", FormatAmount(100_000, "USD"))
	assert.Equal(t, "-0.50 USD", FormatAmount(-50, "USD"))
}

func TestRenderProducesPDF(t *testing.T) {
	r := NewPDFRenderer("")
	body, err := r.Render(context.Background(), domain.Invoice{
		PaymentID: "pay_1",
		BookingID: "booking_1",
		Number:    "PP-202605-000001",
		Amount:    200_000,
		Currency:  "VND",
		IssuedAt:  time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF")))
}
