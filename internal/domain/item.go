package domain

import (
	"time"

	"github.com/Ezyrone/TP-Final-2/pkg/protocol"

	"github.com/google/uuid"
)

// Item is one entry of the shared list. The owner never changes and items
// are only ever soft-deleted.
type Item struct {
	ID          string    `json:"id" dynamodbav:"ID"`
	Content     string    `json:"content" dynamodbav:"Content"`
	OwnerID     string    `json:"ownerId" dynamodbav:"OwnerID"`
	OwnerPseudo string    `json:"ownerPseudo" dynamodbav:"OwnerPseudo"`
	CreatedAt   time.Time `json:"createdAt" dynamodbav:"CreatedAt"`
	UpdatedAt   time.Time `json:"updatedAt" dynamodbav:"UpdatedAt"`
	Deleted     bool      `json:"deleted" dynamodbav:"Deleted"`
}

// NewItem builds a fresh item with a random id. content must already be sanitized.
func NewItem(content, ownerID, ownerPseudo string, now time.Time) Item {
	return Item{
		ID:          uuid.New().String(),
		Content:     content,
		OwnerID:     ownerID,
		OwnerPseudo: ownerPseudo,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// ToWire converts the item to its public JSON shape.
func (i Item) ToWire() protocol.Item {
	return protocol.Item{
		ID:          i.ID,
		Content:     i.Content,
		OwnerID:     i.OwnerID,
		OwnerPseudo: i.OwnerPseudo,
		CreatedAt:   i.CreatedAt,
		UpdatedAt:   i.UpdatedAt,
	}
}

// ItemsToWire converts a list, skipping deleted items.
func ItemsToWire(items []Item) []protocol.Item {
	out := make([]protocol.Item, 0, len(items))
	for _, it := range items {
		if it.Deleted {
			continue
		}
		out = append(out, it.ToWire())
	}
	return out
}
