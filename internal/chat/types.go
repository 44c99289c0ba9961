package chat

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnsupportedContent is returned when a content variant has no renderable payload yet.
var ErrUnsupportedContent = errors.New("unsupported content type")

// ContentType enumerates the message content variants known to the service.
type ContentType string

const (
	ContentText  ContentType = "TEXT"
	ContentAudio ContentType = "AUDIO"
	ContentImage ContentType = "IMG"
	ContentVideo ContentType = "VIDEO"
)

// Valid reports whether t is one of the declared variants.
func (t ContentType) Valid() bool {
	switch t {
	case ContentText, ContentAudio, ContentImage, ContentVideo:
		return true
	default:
		return false
	}
}

// UnmarshalJSON rejects content types outside the declared set.
func (t *ContentType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	ct := ContentType(s)
	if s != "" && !ct.Valid() {
		return fmt.Errorf("content type %q: %w", s, ErrUnsupportedContent)
	}
	*t = ct
	return nil
}

// Content is the payload of a message. Only TEXT is implemented; AUDIO, IMG and
// VIDEO are declared so that the wire format round-trips.
type Content struct {
	Body      string      `json:"content"`
	Type      ContentType `json:"contentType"`
	CreatedAt string      `json:"createdAt,omitempty"`
}

// NewText builds a TEXT content. The server stamps CreatedAt.
func NewText(text string) Content {
	return Content{Body: text, Type: ContentText}
}

// Text returns the text payload, or ErrUnsupportedContent for the other variants.
func (c Content) Text() (string, error) {
	switch c.Type {
	case ContentText, "":
		return c.Body, nil
	case ContentAudio, ContentImage, ContentVideo:
		return "", fmt.Errorf("%s: %w", c.Type, ErrUnsupportedContent)
	default:
		return "", fmt.Errorf("%q: %w", c.Type, ErrUnsupportedContent)
	}
}

// Message is a single chat message. ID is assigned by the server and is empty
// until a send completes. CreatedAt equals Content.CreatedAt unless Edited.
type Message struct {
	ID         string  `json:"id,omitempty"`
	ChatRoomID string  `json:"chatRoomId"`
	SenderID   string  `json:"senderId"`
	Content    Content `json:"content"`
	Edited     bool    `json:"edited"`
	CreatedAt  string  `json:"createdAt,omitempty"`
}

// ChatRoomInfo describes a room the user belongs to.
type ChatRoomInfo struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Creator string `json:"creator"`
}
