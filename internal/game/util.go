package game

import (
	"encoding/json"

	"github.com/google/uuid"
)

func GenID() string {
	id, err := uuid.NewV7()
	if err != nil {
		panic("failed to generate UUID: " + err.Error())
	}

	s := id.String()

	return s[len(s)-8:]
}

func mustMarshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic("failed to marshal: " + err.Error())
	}

	return data
}
