package realtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan InsertEvent) InsertEvent {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return InsertEvent{}
	}
}

func TestHubDeliversMatchingEvents(t *testing.T) {
	hub := NewHub(4)
	defer hub.Close()

	got := make(chan InsertEvent, 4)
	unsubscribe, err := hub.SubscribeInsert("availability_submissions", Filter{Column: "proposal_id", Value: "p1"}, func(ev InsertEvent) {
		got <- ev
	})
	require.NoError(t, err)
	defer unsubscribe()

	hub.Publish(InsertEvent{Table: "availability_submissions", Row: map[string]string{"proposal_id": "p2"}})
	hub.Publish(InsertEvent{Table: "event_suggestions", Row: map[string]string{"proposal_id": "p1"}})
	hub.Publish(InsertEvent{Table: "availability_submissions", Row: map[string]string{"proposal_id": "p1", "user_id": "u1"}})

	ev := receive(t, got)
	assert.Equal(t, "u1", ev.Row["user_id"])

	select {
	case extra := <-got:
		t.Fatalf("unexpected event %+v", extra)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubUnsubscribe(t *testing.T) {
	hub := NewHub(1)
	got := make(chan InsertEvent, 1)
	unsubscribe, err := hub.SubscribeInsert("t", Filter{}, func(ev InsertEvent) { got <- ev })
	require.NoError(t, err)
	assert.Equal(t, 1, hub.Len())

	unsubscribe()
	unsubscribe()
	assert.Equal(t, 0, hub.Len())

	hub.Publish(InsertEvent{Table: "t"})
	select {
	case <-got:
		t.Fatal("event delivered after unsubscribe")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubResyncIgnoresFilter(t *testing.T) {
	hub := NewHub(2)
	defer hub.Close()

	got := make(chan InsertEvent, 2)
	_, err := hub.SubscribeInsert("t", Filter{Column: "proposal_id", Value: "p1"}, func(ev InsertEvent) { got <- ev })
	require.NoError(t, err)

	hub.Resync("t")
	ev := receive(t, got)
	assert.Equal(t, "t", ev.Table)
	assert.Empty(t, ev.Row)
}

func TestDecodeNotification(t *testing.T) {
	ev, err := DecodeNotification(`{"table":"availability_submissions","row":{"proposal_id":"p1","user_id":"u1"}}`)
	require.NoError(t, err)
	assert.Equal(t, "availability_submissions", ev.Table)
	assert.Equal(t, "p1", ev.Row["proposal_id"])

	_, err = DecodeNotification(`{"row":{}}`)
	assert.Error(t, err)

	_, err = DecodeNotification(`not json`)
	assert.Error(t, err)
}

func TestFilterMatches(t *testing.T) {
	assert.True(t, Filter{}.Matches(nil))
	assert.True(t, Filter{Column: "a", Value: "1"}.Matches(map[string]string{"a": "1"}))
	assert.False(t, Filter{Column: "a", Value: "1"}.Matches(map[string]string{"a": "2"}))
}
