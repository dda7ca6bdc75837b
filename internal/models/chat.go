package models

import "time"

// ContentKind is the wire tag for a message's content kind. Only text,
// photo, video and location carry a materialized payload; the remaining
// tags are accepted but unsupported.
type ContentKind string

const (
	KindText           ContentKind = "text"
	KindPhoto          ContentKind = "photo"
	KindVideo          ContentKind = "video"
	KindLocation       ContentKind = "location"
	KindAttributedText ContentKind = "attributed_text"
	KindEmoji          ContentKind = "emoji"
	KindAudio          ContentKind = "audio"
	KindContact        ContentKind = "contact"
	KindLinkPreview    ContentKind = "linkPreview"
	KindCustom         ContentKind = "custom"
)

var knownKinds = map[ContentKind]struct{}{
	KindText:           {},
	KindPhoto:          {},
	KindVideo:          {},
	KindLocation:       {},
	KindAttributedText: {},
	KindEmoji:          {},
	KindAudio:          {},
	KindContact:        {},
	KindLinkPreview:    {},
	KindCustom:         {},
}

// IsKnownKind reports whether tag is one of the accepted content kind tags.
func IsKnownKind(tag ContentKind) bool {
	_, ok := knownKinds[tag]
	return ok
}

// GeoPoint is a geolocation message payload.
type GeoPoint struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

// MessageContent is a tagged union of the supported message payloads.
// Exactly one payload field is meaningful, selected by Kind; unsupported
// kinds carry no payload at all.
type MessageContent struct {
	Kind     ContentKind `json:"kind"`
	Text     string      `json:"text,omitempty"`
	URL      string      `json:"url,omitempty"`
	Location *GeoPoint   `json:"location,omitempty"`
}

// TextContent builds a text message payload.
func TextContent(text string) MessageContent {
	return MessageContent{Kind: KindText, Text: text}
}

// PhotoContent builds a photo-reference payload from an uploaded object URL.
func PhotoContent(url string) MessageContent {
	return MessageContent{Kind: KindPhoto, URL: url}
}

// VideoContent builds a video-reference payload from an uploaded object URL.
func VideoContent(url string) MessageContent {
	return MessageContent{Kind: KindVideo, URL: url}
}

// LocationContent builds a geolocation payload.
func LocationContent(longitude, latitude float64) MessageContent {
	return MessageContent{Kind: KindLocation, Location: &GeoPoint{Longitude: longitude, Latitude: latitude}}
}

// UnsupportedContent builds a payload-free message for an accepted but
// unsupported kind tag.
func UnsupportedContent(kind ContentKind) MessageContent {
	return MessageContent{Kind: kind}
}

// PreviewText returns the text used for the latest-message snapshot in a
// conversation summary. Only text messages materialize a preview; every
// other kind renders as empty.
func (c MessageContent) PreviewText() string {
	if c.Kind == KindText {
		return c.Text
	}
	return ""
}

// Message is one immutable entry in a conversation's log. Seq is assigned
// by the store on append and defines the listing order.
type Message struct {
	ID             string         `json:"id"`
	ConversationID string         `json:"conversation_id"`
	Seq            int64          `json:"seq"`
	SenderKey      string         `json:"sender_key"`
	SenderName     string         `json:"sender_name,omitempty"`
	SentAt         time.Time      `json:"sent_at"`
	Content        MessageContent `json:"content"`
	IsRead         bool           `json:"is_read"`
}

// LatestMessage is the snapshot of a conversation's most recent message,
// duplicated into each participant's summary.
type LatestMessage struct {
	Date   time.Time `json:"date"`
	Text   string    `json:"text"`
	IsRead bool      `json:"is_read"`
}

// ConversationSummary is one entry in a user's conversation index. The two
// participants hold independent copies; they converge after the write path
// completes both updates, never atomically.
type ConversationSummary struct {
	ConversationID string        `json:"conversation_id"`
	UserKey        string        `json:"-"`
	OtherUserKey   string        `json:"other_user_key"`
	OtherUserName  string        `json:"other_user_name"`
	Latest         LatestMessage `json:"latest_message"`
	Version        int64         `json:"version"`
}

// User is a registered account. The identity key is immutable; the display
// name may change.
type User struct {
	ID          string    `json:"id"`
	IdentityKey string    `json:"identity_key"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
