package protocol

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeEvent_ItemPayloadIsTheItem(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	item := Item{ID: "i1", Content: "Milk", OwnerID: "u1", OwnerPseudo: "alice", CreatedAt: now, UpdatedAt: now}

	data, err := EncodeEvent(ItemCreated{Item: item})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"item_created","payload":{"id":"i1","content":"Milk","ownerId":"u1","ownerPseudo":"alice","createdAt":"2024-05-01T10:00:00Z","updatedAt":"2024-05-01T10:00:00Z"}}`, string(data))

	ev, err := DecodeEvent(data)
	require.NoError(t, err)
	assert.Equal(t, ItemCreated{Item: item}, ev)
}

func TestDecodeEvent(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		want  Event
	}{
		{"deleted", `{"type":"item_deleted","payload":{"id":"i1"}}`, ItemDeleted{ID: "i1"}},
		{"metrics", `{"type":"metrics","payload":{"totalMessagesProcessed":3}}`, MetricsUpdate{Metrics: Metrics{TotalMessagesProcessed: 3}}},
		{"pong", `{"type":"pong","payload":{"echoTimestamp":10,"serverTimestamp":20}}`, Pong{EchoTimestamp: 10, ServerTimestamp: 20}},
		{"error", `{"type":"error","payload":{"message":"Session invalide."}}`, ErrorPayload{Message: "Session invalide."}},
		{"presence", `{"type":"presence","payload":{"connections":2,"users":[{"userId":"u1","pseudo":"alice","connections":2}]}}`,
			Presence{Connections: 2, Users: []User{{UserID: "u1", Pseudo: "alice", Connections: 2}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := DecodeEvent([]byte(tt.frame))
			require.NoError(t, err)
			assert.Equal(t, tt.want, ev)
		})
	}
}

func TestDecodeEvent_Unknown(t *testing.T) {
	_, err := DecodeEvent([]byte(`{"type":"teleport","payload":{}}`))
	assert.Error(t, err)

	_, err = DecodeEvent([]byte(`nope`))
	assert.Error(t, err)
}

func TestSnapshot_Normalize(t *testing.T) {
	data, err := Marshal("snapshot", Snapshot{}.Normalize())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"users":[]`)
	assert.Contains(t, string(data), `"logs":[]`)
}
