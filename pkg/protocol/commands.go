package protocol

import (
	"encoding/json"
	"sync"

	apperrors "github.com/Ezyrone/TP-Final-2/pkg/errors"

	"github.com/go-playground/validator/v10"
)

// CommandVisitor handles each client command variant. Adding a command to the
// union adds a method here, so every dispatcher must handle it to compile.
type CommandVisitor interface {
	VisitCreateItem(cmd CreateItem) error
	VisitUpdateItem(cmd UpdateItem) error
	VisitDeleteItem(cmd DeleteItem) error
	VisitPing(cmd Ping) error
}

// Command is the sealed union of client to server frames.
type Command interface {
	Type() string
	Accept(v CommandVisitor) error
	sealed()
}

// CreateItem asks the hub to add an item owned by the caller.
type CreateItem struct {
	Content string `json:"content"`
}

// UpdateItem replaces the content of one of the caller's items.
type UpdateItem struct {
	ID      string `json:"id" validate:"required"`
	Content string `json:"content"`
}

// DeleteItem soft-deletes one of the caller's items.
type DeleteItem struct {
	ID string `json:"id" validate:"required"`
}

// Ping carries the client clock in milliseconds; the hub echoes it in a pong.
type Ping struct {
	Timestamp float64 `json:"timestamp"`

	hasTimestamp bool
}

// NewPing builds a ping stamped with ts (unix milliseconds).
func NewPing(ts int64) Ping {
	return Ping{Timestamp: float64(ts), hasTimestamp: true}
}

// HasTimestamp reports whether the frame carried a numeric timestamp.
func (p Ping) HasTimestamp() bool { return p.hasTimestamp }

func (CreateItem) Type() string { return TypeCreateItem }
func (UpdateItem) Type() string { return TypeUpdateItem }
func (DeleteItem) Type() string { return TypeDeleteItem }
func (Ping) Type() string       { return TypePing }

func (c CreateItem) Accept(v CommandVisitor) error { return v.VisitCreateItem(c) }
func (c UpdateItem) Accept(v CommandVisitor) error { return v.VisitUpdateItem(c) }
func (c DeleteItem) Accept(v CommandVisitor) error { return v.VisitDeleteItem(c) }
func (c Ping) Accept(v CommandVisitor) error       { return v.VisitPing(c) }

func (CreateItem) sealed() {}
func (UpdateItem) sealed() {}
func (DeleteItem) sealed() {}
func (Ping) sealed()       {}

// EncodeCommand builds the wire bytes for a client command.
func EncodeCommand(cmd Command) ([]byte, error) {
	return Marshal(cmd.Type(), cmd)
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// ValidateIDs checks the struct-tag rules of a command (currently: ids are required).
func ValidateIDs(cmd Command) *apperrors.AppError {
	if err := getValidator().Struct(cmd); err != nil {
		return apperrors.NewValidationError(apperrors.CodeMissingID, apperrors.MsgMissingID).WithCause(err)
	}
	return nil
}

// DecodeCommand parses a client frame.
//
// Malformed JSON and a missing or non-string type are transport errors; an
// unknown type is reported with the type name. Payload fields of the wrong
// JSON type are decoded as empty values so that command validation reports
// them, as a browser client would see it.
func DecodeCommand(data []byte) (Command, *apperrors.AppError) {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, apperrors.NewTransportError(apperrors.CodeBadPayload, apperrors.MsgBadPayload).WithCause(err)
	}

	frame, _ := raw.(map[string]interface{})
	frameType, ok := frame["type"].(string)
	if !ok {
		return nil, apperrors.NewTransportError(apperrors.CodeMissingType, apperrors.MsgMissingType)
	}
	payload, _ := frame["payload"].(map[string]interface{})

	switch frameType {
	case TypeCreateItem:
		return CreateItem{Content: stringField(payload, "content")}, nil
	case TypeUpdateItem:
		return UpdateItem{ID: stringField(payload, "id"), Content: stringField(payload, "content")}, nil
	case TypeDeleteItem:
		return DeleteItem{ID: stringField(payload, "id")}, nil
	case TypePing:
		ts, ok := payload["timestamp"].(float64)
		return Ping{Timestamp: ts, hasTimestamp: ok}, nil
	default:
		return nil, apperrors.NewTransportError(apperrors.CodeUnknownType, "Type inconnu "+frameType)
	}
}

func stringField(payload map[string]interface{}, key string) string {
	s, _ := payload[key].(string)
	return s
}
