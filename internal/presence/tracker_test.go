package presence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_CountsPerUser(t *testing.T) {
	tr := NewTracker()

	tr.Add("u1", "alice")
	tr.Add("u1", "alice")
	tr.Add("u2", "bob")

	total, records := tr.Snapshot()
	assert.Equal(t, 3, total)
	require.Len(t, records, 2)
	assert.Equal(t, Record{UserID: "u1", Pseudo: "alice", Connections: 2}, records[0])
	assert.Equal(t, Record{UserID: "u2", Pseudo: "bob", Connections: 1}, records[1])

	tr.Remove("u1")
	total, records = tr.Snapshot()
	assert.Equal(t, 2, total)
	assert.Equal(t, 1, records[0].Connections)

	tr.Remove("u1")
	total, records = tr.Snapshot()
	assert.Equal(t, 1, total)
	require.Len(t, records, 1)
	assert.Equal(t, "bob", records[0].Pseudo)
}

func TestTracker_RemoveUnknownIsNoop(t *testing.T) {
	tr := NewTracker()
	tr.Remove("ghost")

	total, records := tr.Snapshot()
	assert.Equal(t, 0, total)
	assert.Empty(t, records)
}

func TestTracker_SortedByPseudo(t *testing.T) {
	tr := NewTracker()
	tr.Add("u3", "carol")
	tr.Add("u1", "alice")
	tr.Add("u2", "bob")

	_, records := tr.Snapshot()
	users := Users(records)
	require.Len(t, users, 3)
	assert.Equal(t, []string{"alice", "bob", "carol"}, []string{users[0].Pseudo, users[1].Pseudo, users[2].Pseudo})
}
