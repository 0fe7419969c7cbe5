// internal/kronos/service_test.go
package kronos

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	status     string
	statusErr  error
	fetchCalls int
	operations []Operation
	opResult   bool
	opErr      error
}

func (f *fakeClient) fetchStatus(_ context.Context, _ int) (string, error) {
	f.fetchCalls++
	return f.status, f.statusErr
}

func (f *fakeClient) applyOperation(_ context.Context, _ int, op Operation) (bool, error) {
	f.operations = append(f.operations, op)
	return f.opResult, f.opErr
}

func testService(client *fakeClient, now *time.Time) *Service {
	svc := newService(Record{ID: 1, Alias: "box", Product: "Appbox", NodeAlias: "node-1"}, client)
	svc.now = func() time.Time { return *now }
	return svc
}

func TestStatusIsCachedForAMinute(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	client := &fakeClient{status: "running"}
	svc := testService(client, &now)

	require.Equal(t, "running", svc.Status(context.Background(), false))
	require.Equal(t, "running", svc.Status(context.Background(), false))
	require.Equal(t, 1, client.fetchCalls, "second read within the window must not fetch")

	now = now.Add(61 * time.Second)
	require.Equal(t, "running", svc.Status(context.Background(), false))
	require.Equal(t, 2, client.fetchCalls, "read after the window must fetch again")
}

func TestStatusForceRefreshBypassesCache(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	client := &fakeClient{status: "running"}
	svc := testService(client, &now)

	svc.Status(context.Background(), false)
	svc.Status(context.Background(), true)
	require.Equal(t, 2, client.fetchCalls)
}

func TestStatusNormalizesExited(t *testing.T) {
	now := time.Now()
	client := &fakeClient{status: "exited"}
	svc := testService(client, &now)

	require.Equal(t, "stopped", svc.Status(context.Background(), false))
}

func TestStatusOtherValuesPassThrough(t *testing.T) {
	now := time.Now()
	client := &fakeClient{status: "restarting"}
	svc := testService(client, &now)

	require.Equal(t, "restarting", svc.Status(context.Background(), false))
}

func TestStatusFailureSentinelIsCached(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	client := &fakeClient{statusErr: errors.New("connection refused")}
	svc := testService(client, &now)

	require.Equal(t, StatusUnavailable, svc.Status(context.Background(), false))
	require.Equal(t, StatusUnavailable, svc.Status(context.Background(), false))
	require.Equal(t, 1, client.fetchCalls, "repeated failures must also be rate-limited")
}

func TestOperationsDelegateToClient(t *testing.T) {
	now := time.Now()
	client := &fakeClient{opResult: true}
	svc := testService(client, &now)

	require.True(t, svc.Start(context.Background()))
	require.True(t, svc.Stop(context.Background()))
	require.True(t, svc.Restart(context.Background()))
	require.Equal(t, []Operation{OperationStart, OperationStop, OperationRestart}, client.operations)
}

func TestOperationFailureReturnsFalse(t *testing.T) {
	now := time.Now()
	client := &fakeClient{opErr: errors.New("boom")}
	svc := testService(client, &now)

	require.False(t, svc.Start(context.Background()))
}

func TestStreamInfoWithoutProbe(t *testing.T) {
	now := time.Now()
	svc := testService(&fakeClient{}, &now)

	info := svc.StreamInfo(context.Background())
	require.Nil(t, info.ActiveStreams)
	require.Nil(t, info.ActiveTranscodes)
}

func TestDescription(t *testing.T) {
	now := time.Now()
	svc := testService(&fakeClient{}, &now)

	require.Equal(t, "Node node-1 - Appbox", svc.Description())
}
