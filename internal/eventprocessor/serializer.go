// Cadence - Batch Recording Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package eventprocessor

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tomtom215/cadence/internal/recommend"
)

// Serializer handles message encoding/decoding for transport payloads.
type Serializer struct{}

// NewSerializer creates a new serializer.
func NewSerializer() *Serializer {
	return &Serializer{}
}

// Marshal converts a message to JSON bytes.
func (s *Serializer) Marshal(msg recommend.Message) ([]byte, error) {
	if msg == nil {
		return nil, fmt.Errorf("marshal message: nil message")
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal %s message: %w", msg.MessageType(), err)
	}
	return data, nil
}

// Unmarshal decodes a payload into the message type named by its "type"
// field.
func (s *Serializer) Unmarshal(data []byte) (recommend.Message, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("unmarshal message: %w", err)
	}

	var msg recommend.Message
	switch head.Type {
	case recommend.MessageTypeRecommendations:
		msg = &recommend.UserMessage{}
	case recommend.MessageTypeDigest:
		msg = &recommend.DigestMessage{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessageType, head.Type)
	}

	if err := json.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("unmarshal %s message: %w", head.Type, err)
	}
	return msg, nil
}

// SerializeMessage is a convenience function that marshals a message to JSON.
func SerializeMessage(msg recommend.Message) ([]byte, error) {
	return NewSerializer().Marshal(msg)
}

// DeserializeMessage is a convenience function that unmarshals JSON to a message.
func DeserializeMessage(data []byte) (recommend.Message, error) {
	return NewSerializer().Unmarshal(data)
}
