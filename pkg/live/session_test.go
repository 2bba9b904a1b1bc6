package live_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgeops/stocksync/pkg/live"
	"github.com/forgeops/stocksync/pkg/stock"
	"github.com/forgeops/stocksync/pkg/syncer"
)

// scriptedConn feeds a fixed sequence of inbound payloads, then reports a
// clean client close.
type scriptedConn struct {
	payloads chan []byte
}

func newScriptedConn(payloads ...string) *scriptedConn {
	c := &scriptedConn{payloads: make(chan []byte, len(payloads)+1)}
	for _, p := range payloads {
		c.payloads <- []byte(p)
	}
	close(c.payloads)
	return c
}

func (c *scriptedConn) ReadMessage() ([]byte, error) {
	p, ok := <-c.payloads
	if !ok {
		return nil, io.EOF
	}
	return p, nil
}

func runSession(t *testing.T, hub *live.Hub, identity string, syncs live.BatchApplier, conn live.Conn) {
	t.Helper()
	session := live.NewSession(hub, identity, syncs, nil)
	require.NoError(t, session.Run(context.Background(), conn))
}

func TestSessionControlMessages(t *testing.T) {
	t.Parallel()

	t.Run("ping answered with pong", func(t *testing.T) {
		t.Parallel()

		hub := live.NewHub()
		defer hub.Close()
		tr := &captureTransport{}
		require.NoError(t, hub.Connect("user-1", tr, nil))

		runSession(t, hub, "user-1", nil, newScriptedConn(`{"type":"ping"}`))
		waitForEvent(t, tr, live.EventPong)
	})

	t.Run("heartbeat acknowledged and liveness refreshed", func(t *testing.T) {
		t.Parallel()

		hub := live.NewHub()
		defer hub.Close()
		tr := &captureTransport{}
		require.NoError(t, hub.Connect("user-1", tr, nil))

		before := hub.Snapshot()[0].LastSeen
		time.Sleep(10 * time.Millisecond)

		// Keep the session alive past the scripted EOF so Snapshot still
		// sees it; run the reads inline instead.
		session := live.NewSession(hub, "user-1", nil, nil)
		conn := newScriptedConn(`{"type":"heartbeat"}`)
		go func() { _ = session.Run(context.Background(), conn) }()

		waitForEvent(t, tr, live.EventHeartbeatAck)
		require.Eventually(t, func() bool {
			snap := hub.Snapshot()
			return len(snap) == 0 || snap[0].LastSeen.After(before)
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("subscribe_locations acknowledged", func(t *testing.T) {
		t.Parallel()

		hub := live.NewHub()
		defer hub.Close()
		tr := &captureTransport{}
		require.NoError(t, hub.Connect("user-1", tr, []string{"loc-a"}))

		runSession(t, hub, "user-1", nil,
			newScriptedConn(`{"type":"subscribe_locations","data":{"locations":["loc-b","loc-c"]}}`))

		ev := waitForEvent(t, tr, live.EventSubscriptionUpdated)
		data, ok := ev.Data.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, []string{"loc-b", "loc-c"}, data["locations"])
	})

	t.Run("unknown type answered with error, connection continues", func(t *testing.T) {
		t.Parallel()

		hub := live.NewHub()
		defer hub.Close()
		tr := &captureTransport{}
		require.NoError(t, hub.Connect("user-1", tr, nil))

		runSession(t, hub, "user-1", nil, newScriptedConn(
			`{"type":"teleport"}`,
			`{"type":"ping"}`,
		))

		ev := waitForEvent(t, tr, live.EventError)
		data, ok := ev.Data.(map[string]any)
		require.True(t, ok)
		assert.Contains(t, data["message"], "unknown message type")

		// The error did not end the session: the ping after it was answered.
		waitForEvent(t, tr, live.EventPong)
	})

	t.Run("malformed payload answered with error", func(t *testing.T) {
		t.Parallel()

		hub := live.NewHub()
		defer hub.Close()
		tr := &captureTransport{}
		require.NoError(t, hub.Connect("user-1", tr, nil))

		runSession(t, hub, "user-1", nil, newScriptedConn(`{not json`))
		waitForEvent(t, tr, live.EventError)
	})

	t.Run("disconnects when the client goes away", func(t *testing.T) {
		t.Parallel()

		hub := live.NewHub()
		defer hub.Close()
		tr := &captureTransport{}
		require.NoError(t, hub.Connect("user-1", tr, nil))

		runSession(t, hub, "user-1", nil, newScriptedConn())
		require.Eventually(t, func() bool {
			return hub.Len() == 0
		}, time.Second, 5*time.Millisecond)
	})
}

func TestSessionSyncRequest(t *testing.T) {
	t.Parallel()

	itemID := uuid.New()
	locationID := uuid.New()
	userID := uuid.New()

	newReconciler := func() (*syncer.Reconciler, *stock.MemoryProvider) {
		provider := stock.NewMemoryProvider()
		provider.Seed(stock.Level{
			ItemID: itemID, LocationID: locationID,
			ItemName: "Tomatoes", Quantity: 50, ReorderPoint: 10,
		})
		return syncer.NewReconciler(provider), provider
	}

	t.Run("applies the batch and answers sync_response", func(t *testing.T) {
		t.Parallel()

		hub := live.NewHub()
		defer hub.Close()
		tr := &captureTransport{}
		require.NoError(t, hub.Connect(userID.String(), tr, nil))

		reconciler, provider := newReconciler()
		payload := `{"type":"sync_request","data":{"operations":[` +
			`{"local_id":"op-1","item_id":"` + itemID.String() + `",` +
			`"location_id":"` + locationID.String() + `","change":-5,"kind":"sale"}]}}`

		runSession(t, hub, userID.String(), reconciler, newScriptedConn(payload))

		ev := waitForEvent(t, tr, live.EventSyncResponse)
		result, ok := ev.Data.(*syncer.BatchResult)
		require.True(t, ok)
		assert.Equal(t, 1, result.Processed)

		level, err := provider.Get(context.Background(), itemID, locationID)
		require.NoError(t, err)
		assert.InDelta(t, 45, level.Quantity, 0.001)
	})

	t.Run("rejects sync without a configured applier", func(t *testing.T) {
		t.Parallel()

		hub := live.NewHub()
		defer hub.Close()
		tr := &captureTransport{}
		require.NoError(t, hub.Connect(userID.String(), tr, nil))

		runSession(t, hub, userID.String(), nil,
			newScriptedConn(`{"type":"sync_request","data":{"operations":[]}}`))
		waitForEvent(t, tr, live.EventError)
	})

	t.Run("empty batch answered with error", func(t *testing.T) {
		t.Parallel()

		hub := live.NewHub()
		defer hub.Close()
		tr := &captureTransport{}
		require.NoError(t, hub.Connect(userID.String(), tr, nil))

		reconciler, _ := newReconciler()
		runSession(t, hub, userID.String(), reconciler,
			newScriptedConn(`{"type":"sync_request","data":{"operations":[]}}`))
		waitForEvent(t, tr, live.EventError)
	})
}
