package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RecordVersion is the current message record schema version.
const RecordVersion = 1

// ErrMalformedRecord is returned when a stored message record cannot be
// decoded into a Message. Callers listing a conversation skip such records
// instead of aborting, so one corrupt entry cannot hide the rest.
var ErrMalformedRecord = errors.New("malformed message record")

// messageRecord is the persisted wire form of a Message. The field names
// follow the store layout: content is a single string whose interpretation
// depends on the type tag (text, object URL, or "longitude,latitude").
type messageRecord struct {
	V          int    `json:"v"`
	ID         string `json:"id"`
	Type       string `json:"type"`
	Content    string `json:"content"`
	Date       string `json:"date"`
	SenderKey  string `json:"sender_email"`
	SenderName string `json:"sender_name,omitempty"`
	IsRead     bool   `json:"is_read"`
}

// EncodeMessageRecord serializes a Message into its stored record form.
func EncodeMessageRecord(m *Message) ([]byte, error) {
	record := messageRecord{
		V:          RecordVersion,
		ID:         m.ID,
		Type:       string(m.Content.Kind),
		Content:    contentPayload(m.Content),
		Date:       m.SentAt.UTC().Format(time.RFC3339Nano),
		SenderKey:  m.SenderKey,
		SenderName: m.SenderName,
		IsRead:     m.IsRead,
	}

	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to encode message record: %w", err)
	}
	return data, nil
}

// DecodeMessageRecord parses a stored record into a Message, validating the
// required fields. Any validation failure is reported as ErrMalformedRecord.
func DecodeMessageRecord(data []byte) (*Message, error) {
	var record messageRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}

	if record.ID == "" {
		return nil, fmt.Errorf("%w: missing id", ErrMalformedRecord)
	}
	if record.SenderKey == "" {
		return nil, fmt.Errorf("%w: missing sender", ErrMalformedRecord)
	}
	if record.Date == "" {
		return nil, fmt.Errorf("%w: missing date", ErrMalformedRecord)
	}

	sentAt, err := time.Parse(time.RFC3339Nano, record.Date)
	if err != nil {
		return nil, fmt.Errorf("%w: unparseable date %q", ErrMalformedRecord, record.Date)
	}

	kind := ContentKind(record.Type)
	if !IsKnownKind(kind) {
		return nil, fmt.Errorf("%w: unknown content kind %q", ErrMalformedRecord, record.Type)
	}

	content, err := decodeContent(kind, record.Content)
	if err != nil {
		return nil, err
	}

	return &Message{
		ID:         record.ID,
		SenderKey:  record.SenderKey,
		SenderName: record.SenderName,
		SentAt:     sentAt,
		Content:    content,
		IsRead:     record.IsRead,
	}, nil
}

func contentPayload(c MessageContent) string {
	switch c.Kind {
	case KindText:
		return c.Text
	case KindPhoto, KindVideo:
		return c.URL
	case KindLocation:
		if c.Location == nil {
			return ""
		}
		return fmt.Sprintf("%v,%v", c.Location.Longitude, c.Location.Latitude)
	default:
		return ""
	}
}

func decodeContent(kind ContentKind, payload string) (MessageContent, error) {
	switch kind {
	case KindText:
		return TextContent(payload), nil
	case KindPhoto:
		return PhotoContent(payload), nil
	case KindVideo:
		return VideoContent(payload), nil
	case KindLocation:
		parts := strings.SplitN(payload, ",", 2)
		if len(parts) != 2 {
			return MessageContent{}, fmt.Errorf("%w: unparseable location %q", ErrMalformedRecord, payload)
		}
		longitude, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil {
			return MessageContent{}, fmt.Errorf("%w: unparseable longitude %q", ErrMalformedRecord, parts[0])
		}
		latitude, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return MessageContent{}, fmt.Errorf("%w: unparseable latitude %q", ErrMalformedRecord, parts[1])
		}
		return LocationContent(longitude, latitude), nil
	default:
		return UnsupportedContent(kind), nil
	}
}
