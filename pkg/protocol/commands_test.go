package protocol

import (
	"testing"

	apperrors "github.com/Ezyrone/TP-Final-2/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeCommand(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		want  Command
	}{
		{"create", `{"type":"create_item","payload":{"content":"Milk"}}`, CreateItem{Content: "Milk"}},
		{"update", `{"type":"update_item","payload":{"id":"a1","content":"Eggs"}}`, UpdateItem{ID: "a1", Content: "Eggs"}},
		{"delete", `{"type":"delete_item","payload":{"id":"a1"}}`, DeleteItem{ID: "a1"}},
		{"ping", `{"type":"ping","payload":{"timestamp":1700000000000}}`, NewPing(1700000000000)},
		{"non-string content decodes empty", `{"type":"create_item","payload":{"content":42}}`, CreateItem{}},
		{"missing payload", `{"type":"delete_item"}`, DeleteItem{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, appErr := DecodeCommand([]byte(tt.frame))
			require.Nil(t, appErr)
			assert.Equal(t, tt.want, cmd)
		})
	}
}

func TestDecodeCommand_Errors(t *testing.T) {
	tests := []struct {
		name    string
		frame   string
		message string
	}{
		{"malformed json", `{"type":`, apperrors.MsgBadPayload},
		{"missing type", `{"payload":{}}`, apperrors.MsgMissingType},
		{"numeric type", `{"type":7}`, apperrors.MsgMissingType},
		{"array frame", `[1,2]`, apperrors.MsgMissingType},
		{"unknown type", `{"type":"explode"}`, "Type inconnu explode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, appErr := DecodeCommand([]byte(tt.frame))
			assert.Nil(t, cmd)
			require.NotNil(t, appErr)
			assert.Equal(t, tt.message, appErr.Message)
			assert.True(t, apperrors.IsTransport(appErr))
		})
	}
}

func TestDecodeCommand_PingWithoutTimestamp(t *testing.T) {
	cmd, appErr := DecodeCommand([]byte(`{"type":"ping","payload":{"timestamp":"now"}}`))
	require.Nil(t, appErr)

	ping, ok := cmd.(Ping)
	require.True(t, ok)
	assert.False(t, ping.HasTimestamp())
}

func TestValidateIDs(t *testing.T) {
	assert.Nil(t, ValidateIDs(CreateItem{}))
	assert.Nil(t, ValidateIDs(DeleteItem{ID: "x"}))

	appErr := ValidateIDs(UpdateItem{Content: "x"})
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.MsgMissingID, appErr.Message)
	assert.True(t, apperrors.IsValidation(appErr))
}

type recordingVisitor struct{ visited []string }

func (r *recordingVisitor) VisitCreateItem(CreateItem) error {
	r.visited = append(r.visited, "create")
	return nil
}
func (r *recordingVisitor) VisitUpdateItem(UpdateItem) error {
	r.visited = append(r.visited, "update")
	return nil
}
func (r *recordingVisitor) VisitDeleteItem(DeleteItem) error {
	r.visited = append(r.visited, "delete")
	return nil
}
func (r *recordingVisitor) VisitPing(Ping) error {
	r.visited = append(r.visited, "ping")
	return nil
}

func TestCommand_Accept(t *testing.T) {
	v := &recordingVisitor{}
	for _, cmd := range []Command{CreateItem{}, UpdateItem{}, DeleteItem{}, Ping{}} {
		require.NoError(t, cmd.Accept(v))
	}
	assert.Equal(t, []string{"create", "update", "delete", "ping"}, v.visited)
}

func TestEncodeCommand_RoundTripsThroughDecoder(t *testing.T) {
	data, err := EncodeCommand(UpdateItem{ID: "a1", Content: "Bread"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"update_item","payload":{"id":"a1","content":"Bread"}}`, string(data))

	data, err = EncodeCommand(NewPing(12))
	require.NoError(t, err)
	cmd, appErr := DecodeCommand(data)
	require.Nil(t, appErr)
	assert.Equal(t, NewPing(12), cmd)
}
