package service_test

import (
	"context"
	"testing"
	"time"

	auditdomain "github.com/picklepickle/picklepay/internal/audit/domain"
	auditrepo "github.com/picklepickle/picklepay/internal/audit/repository"
	auditservice "github.com/picklepickle/picklepay/internal/audit/service"
	"github.com/picklepickle/picklepay/internal/auditcontext"
	"github.com/picklepickle/picklepay/internal/clock"
	obscontext "github.com/picklepickle/picklepay/internal/observability/context"
	"github.com/picklepickle/picklepay/internal/testutil"
	"github.com/picklepickle/picklepay/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newAuditService(t *testing.T, clk clock.Clock) auditdomain.Service {
	t.Helper()
	return auditservice.NewService(auditservice.Params{
		DB:    testutil.OpenDB(t),
		Log:   zap.NewNop(),
		GenID: testutil.Node(t),
		Repo:  auditrepo.Provide(),
		Clock: clk,
	})
}

func TestRecordAndList(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	svc := newAuditService(t, clk)

	ctx := auditcontext.WithRequestID(context.Background(), "req-7")
	ctx = auditcontext.WithIPAddress(ctx, "10.0.0.1")

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Record(ctx, auditdomain.Entry{
			Action:     "provider_account.bind",
			TargetType: auditdomain.TargetProviderAccount,
			TargetID:   "venue_1:momo",
			Metadata:   map[string]any{"n": i},
		}))
		clk.Advance(time.Second)
	}
	require.NoError(t, svc.Record(ctx, auditdomain.Entry{
		ActorType:  auditdomain.ActorTypePayout,
		Action:     "split.transferred",
		TargetType: auditdomain.TargetPaymentSplit,
		TargetID:   "42",
	}))

	page, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{
		Pagination: pagination.Pagination{PageSize: 2},
		Action:     "provider_account.bind",
	})
	require.NoError(t, err)
	require.Len(t, page.AuditLogs, 2)
	assert.True(t, page.HasMore)
	assert.Equal(t, "system", page.AuditLogs[0].ActorType)
	assert.Equal(t, "req-7", page.AuditLogs[0].Metadata["request_id"])
	require.NotNil(t, page.AuditLogs[0].IPAddress)
	assert.Nil(t, page.AuditLogs[0].UserAgent)
	assert.True(t, page.AuditLogs[0].CreatedAt.After(page.AuditLogs[1].CreatedAt))

	next, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{
		Pagination: pagination.Pagination{PageSize: 2, PageToken: page.NextPageToken},
		Action:     "provider_account.bind",
	})
	require.NoError(t, err)
	assert.Len(t, next.AuditLogs, 1)
	assert.False(t, next.HasMore)

	splits, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{TargetType: auditdomain.TargetPaymentSplit})
	require.NoError(t, err)
	require.Len(t, splits.AuditLogs, 1)
	assert.Equal(t, "payout", splits.AuditLogs[0].ActorType)
}

func TestRecordUsesContextActor(t *testing.T) {
	svc := newAuditService(t, nil)
	ctx := obscontext.WithActor(context.Background(), "admin", "ops-1")

	require.NoError(t, svc.Record(ctx, auditdomain.Entry{Action: "anomaly.resolve", TargetType: auditdomain.TargetPayment}))

	page, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{})
	require.NoError(t, err)
	require.Len(t, page.AuditLogs, 1)
	assert.Equal(t, "admin", page.AuditLogs[0].ActorType)
	require.NotNil(t, page.AuditLogs[0].ActorID)
	assert.Equal(t, "ops-1", *page.AuditLogs[0].ActorID)
}

func TestRecordAndListValidation(t *testing.T) {
	svc := newAuditService(t, nil)

	err := svc.Record(context.Background(), auditdomain.Entry{ActorType: auditdomain.ActorTypeAdmin, Action: " "})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidAction)

	_, err = svc.List(context.Background(), auditdomain.ListAuditLogRequest{
		Pagination: pagination.Pagination{PageToken: "not-a-token"},
	})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidPageToken)

	since := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	until := since.Add(-time.Hour)
	_, err = svc.List(context.Background(), auditdomain.ListAuditLogRequest{Since: &since, Until: &until})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidTimeRange)
}
