package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// Collections a change can apply to
const (
	CollectionTeams    = "teams"
	CollectionPeople   = "people"
	CollectionSettings = "settings"
	CollectionAll      = "all"
)

// Operations carried by a change
const (
	OperationCreate  = "create"
	OperationUpdate  = "update"
	OperationDelete  = "delete"
	OperationReplace = "replace"
)

var errMissingField = errors.New("change message missing collection or operation")

// ChangeMessage announces a committed mutation. It carries no entity data:
// consumers reload the persisted state.
type ChangeMessage struct {
	Collection string    `json:"collection"`
	Operation  string    `json:"operation"`
	ID         string    `json:"id,omitempty"`
	Revision   uint64    `json:"revision"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewChangeMessage creates a change message stamped with the current time
func NewChangeMessage(collection, operation, id string, revision uint64) *ChangeMessage {
	return &ChangeMessage{
		Collection: collection,
		Operation:  operation,
		ID:         id,
		Revision:   revision,
		Timestamp:  time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChangeMessageFromJSON decodes a message and checks its required fields
func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Collection == "" || msg.Operation == "" {
		return nil, errMissingField
	}
	return &msg, nil
}
