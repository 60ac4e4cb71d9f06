package domain

import (
	"strings"
	"testing"
	"time"

	apperrors "github.com/Ezyrone/TP-Final-2/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeContent(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "plain", input: "Milk", want: "Milk"},
		{name: "trimmed", input: "  Eggs \n", want: "Eggs"},
		{name: "angle brackets stripped", input: "<b>Bread</b>", want: "bBread/b"},
		{name: "empty", input: "", wantErr: true},
		{name: "whitespace only", input: "   ", wantErr: true},
		{name: "brackets only", input: "<<>>", wantErr: true},
		{name: "max length", input: strings.Repeat("a", MaxContentLength), want: strings.Repeat("a", MaxContentLength)},
		{name: "too long", input: strings.Repeat("a", MaxContentLength+1), wantErr: true},
		{name: "multibyte counted as characters", input: strings.Repeat("é", MaxContentLength), want: strings.Repeat("é", MaxContentLength)},
		{name: "brackets do not count", input: "<" + strings.Repeat("a", MaxContentLength) + ">", want: strings.Repeat("a", MaxContentLength)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizeContent(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperrors.IsValidation(err))
				assert.Equal(t, apperrors.MsgBadContent, apperrors.GetAppError(err).Message)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestItemsToWire_SkipsDeleted(t *testing.T) {
	now := time.Now()
	live := NewItem("Milk", "u1", "alice", now)
	gone := NewItem("Eggs", "u1", "alice", now)
	gone.Deleted = true

	wire := ItemsToWire([]Item{live, gone})
	require.Len(t, wire, 1)
	assert.Equal(t, live.ID, wire[0].ID)
	assert.Equal(t, "alice", wire[0].OwnerPseudo)
}

func TestNewItem(t *testing.T) {
	now := time.Now()
	a := NewItem("Milk", "u1", "alice", now)
	b := NewItem("Milk", "u1", "alice", now)

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, a.CreatedAt, a.UpdatedAt)
	assert.False(t, a.Deleted)
}

func TestSession(t *testing.T) {
	now := time.Now()
	s := NewSession("u1", "alice", "secret-token", now)

	assert.Equal(t, HashToken("secret-token"), s.TokenHash)
	assert.Len(t, s.TokenHash, 64)
	assert.NotContains(t, s.TokenHash, "secret")
	assert.False(t, s.Expired(now.Add(SessionMaxAge)))
	assert.True(t, s.Expired(now.Add(SessionMaxAge+time.Second)))
}
