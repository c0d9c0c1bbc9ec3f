package appointments

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreCreateAssignsIDAndTimestamp(t *testing.T) {
	store := NewMemoryStore()
	store.now = func() time.Time {
		return time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC)
	}

	id, err := store.Create(context.Background(), Appointment{PatientName: "Jane Roe"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	snapshot, err := store.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, snapshot, 1)
	assert.Equal(t, id, snapshot[0].ID)
	assert.Equal(t, "2026-05-20T12:00:00Z", snapshot[0].RequestedAt)
}

func TestMemoryStoreDeleteUnknownID(t *testing.T) {
	store := NewMemoryStore()
	err := store.Delete(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreSubscribeDeliversInitialAndUpdates(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Create(ctx, Appointment{PatientName: "first"})
	require.NoError(t, err)

	ch, cancel, err := store.Subscribe(ctx)
	require.NoError(t, err)
	defer cancel()

	initial := <-ch
	require.Len(t, initial, 1)
	assert.Equal(t, "first", initial[0].PatientName)

	id, err := store.Create(ctx, Appointment{PatientName: "second"})
	require.NoError(t, err)

	next := receiveSnapshot(t, ch)
	assert.Len(t, next, 2)

	require.NoError(t, store.Delete(ctx, id))
	final := receiveSnapshot(t, ch)
	require.Len(t, final, 1)
	assert.Equal(t, "first", final[0].PatientName)
}

func TestMemoryStoreSubscriberSnapshotsAreIndependent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	_, err := store.Create(ctx, Appointment{PatientName: "a"})
	require.NoError(t, err)

	ch1, cancel1, err := store.Subscribe(ctx)
	require.NoError(t, err)
	defer cancel1()
	ch2, cancel2, err := store.Subscribe(ctx)
	require.NoError(t, err)
	defer cancel2()

	s1 := <-ch1
	s2 := <-ch2
	s1[0].PatientName = "mutated"
	assert.Equal(t, "a", s2[0].PatientName)
}

func TestMemoryStoreCancelStopsDelivery(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	ch, cancel, err := store.Subscribe(ctx)
	require.NoError(t, err)
	<-ch
	cancel()

	_, ok := <-ch
	assert.False(t, ok, "channel closed after cancel")
}

func receiveSnapshot(t *testing.T, ch <-chan []Appointment) []Appointment {
	t.Helper()
	select {
	case snapshot := <-ch:
		return snapshot
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for snapshot")
		return nil
	}
}
