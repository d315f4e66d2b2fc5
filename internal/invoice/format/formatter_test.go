package format

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatInvoiceNumber(t *testing.T) {
	issuedAt := time.Date(2026, 3, 7, 23, 30, 0, 0, time.UTC)

	tests := []struct {
		template string
		seq      int64
		want     string
	}{
		{template: DefaultInvoiceNumberTemplate, seq: 42, want: "PP-202603-000042"},
		{template: "INV-{YY}{MM}{DD}-{SEQ}", seq: 7, want: "INV-260307-7"},
		{template: "{SEQ3}", seq: 12345, want: "12345"},
	}
	for _, tt := range tests {
		got, err := FormatInvoiceNumber(tt.template, issuedAt, tt.seq)
		require.NoError(t, err, tt.template)
		assert.Equal(t, tt.want, got)
	}
}

func TestFormatInvoiceNumberUsesUTC(t *testing.T) {
	hcm := time.FixedZone("ICT", 7*3600)
	issuedAt := time.Date(2026, 4, 1, 3, 0, 0, 0, hcm)

	got, err := FormatInvoiceNumber(DefaultInvoiceNumberTemplate, issuedAt, 1)
	require.NoError(t, err)
	assert.Equal(t, "PP-202603-000001", got)
}

func TestFormatInvoiceNumberRejectsBadInput(t *testing.T) {
	now := time.Now()

	_, err := FormatInvoiceNumber("", now, 1)
	assert.Error(t, err)
	_, err = FormatInvoiceNumber("PP-{YYYY}", now, 1)
	assert.Error(t, err)
	_, err = FormatInvoiceNumber(DefaultInvoiceNumberTemplate, now, 0)
	assert.Error(t, err)
	_, err = FormatInvoiceNumber("PP-{SEQ}-{BRANCH}", now, 1)
	assert.Error(t, err)
}
