// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"fmt"

	"github.com/google/uuid"
)

// Part kinds.
const (
	// PartKindText identifies a text part.
	PartKindText = "text"
	// PartKindFile identifies a file-reference part.
	PartKindFile = "file"
	// PartKindData identifies a structured-data part.
	PartKindData = "data"
)

// Part represents one typed segment of a message or artifact.
type Part struct {
	// Kind discriminates the part type: "text", "file", or "data".
	Kind string `json:"kind"`

	// Text content, set when Kind is "text".
	Text string `json:"text,omitzero"`

	// File reference, set when Kind is "file".
	File *FileRef `json:"file,omitzero"`

	// Structured data, set when Kind is "data".
	Data map[string]any `json:"data,omitzero"`

	// Optional metadata associated with the part.
	Metadata map[string]any `json:"metadata,omitzero"`
}

// FileRef references file content by URI or inline bytes.
type FileRef struct {
	Name     string `json:"name,omitzero"`
	MIMEType string `json:"mimeType,omitzero"`
	URI      string `json:"uri,omitzero"`
	Bytes    string `json:"bytes,omitzero"`
}

// TextPart returns a text Part.
func TextPart(text string) Part {
	return Part{Kind: PartKindText, Text: text}
}

// FilePart returns a file-reference Part.
func FilePart(file *FileRef) Part {
	return Part{Kind: PartKindFile, File: file}
}

// DataPart returns a structured-data Part.
func DataPart(data map[string]any) Part {
	return Part{Kind: PartKindData, Data: data}
}

// Validate ensures the Part is in a valid state.
func (p Part) Validate() error {
	switch p.Kind {
	case PartKindText:
		return nil
	case PartKindFile:
		if p.File == nil {
			return fmt.Errorf("file part requires a file reference")
		}
		return nil
	case PartKindData:
		if p.Data == nil {
			return fmt.Errorf("data part requires data")
		}
		return nil
	default:
		return fmt.Errorf("unknown part kind: %q", p.Kind)
	}
}

// Role identifies the sender of a message.
type Role string

const (
	// RoleUser marks a message sent by the requesting side.
	RoleUser Role = "user"
	// RoleAgent marks a message produced by the executing side.
	RoleAgent Role = "agent"
)

// KindMessage is the kind discriminator carried by Message.
const KindMessage = "message"

// Message represents a message exchanged with an agent.
type Message struct {
	// MessageID is an identifier created by the message sender.
	MessageID string `json:"messageId"`

	// Role of the message sender, "user" or "agent".
	Role Role `json:"role"`

	// Parts holds the message content.
	Parts []Part `json:"parts"`

	// ContextID groups related interactions.
	ContextID string `json:"contextId,omitzero"`

	// TaskID identifies the task the message relates to.
	TaskID string `json:"taskId,omitzero"`

	// Kind is always "message".
	Kind string `json:"kind"`

	// Extension metadata.
	Metadata map[string]any `json:"metadata,omitzero"`
}

// NewMessage creates a Message with a generated id.
func NewMessage(role Role, parts ...Part) Message {
	return Message{
		MessageID: uuid.NewString(),
		Role:      role,
		Parts:     parts,
		Kind:      KindMessage,
	}
}

// Text returns the concatenated text content of the message parts.
func (m Message) Text() string {
	var out string
	for _, p := range m.Parts {
		if p.Kind == PartKindText {
			out += p.Text
		}
	}

	return out
}

// Validate ensures the Message is in a valid state.
func (m Message) Validate() error {
	if m.MessageID == "" {
		return fmt.Errorf("message id cannot be empty")
	}
	if m.Role != RoleUser && m.Role != RoleAgent {
		return fmt.Errorf("unknown message role: %q", m.Role)
	}
	if len(m.Parts) == 0 {
		return fmt.Errorf("message requires at least one part")
	}
	for i, p := range m.Parts {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("part %d: %w", i, err)
		}
	}

	return nil
}
