package models

// CreateConversationRequest starts a conversation with its first message.
type CreateConversationRequest struct {
	CounterpartyEmail string         `json:"counterparty_email"`
	CounterpartyName  string         `json:"counterparty_name"`
	Message           MessageContent `json:"message"`
}

// CreateConversationResponse carries the minted conversation id.
type CreateConversationResponse struct {
	ConversationID string `json:"conversation_id"`
}

// SendMessageRequest appends a message to an existing conversation. The
// counterparty fields are needed to keep their index entry current.
type SendMessageRequest struct {
	CounterpartyEmail string         `json:"counterparty_email"`
	CounterpartyName  string         `json:"counterparty_name"`
	Message           MessageContent `json:"message"`
}

// ConversationsResponse is the user's conversation index.
type ConversationsResponse struct {
	Conversations []*ConversationSummary `json:"conversations"`
}

// MessagesResponse is a conversation's decoded message log.
type MessagesResponse struct {
	Messages []*Message `json:"messages"`
}

// FindConversationResponse carries a resolved conversation id.
type FindConversationResponse struct {
	ConversationID string `json:"conversation_id"`
}

// UsersResponse is the people directory.
type UsersResponse struct {
	Users []*User `json:"users"`
}

// ProfileRequest updates the caller's display name.
type ProfileRequest struct {
	DisplayName string `json:"display_name"`
}

// UploadResponse carries the download URL of an uploaded object.
type UploadResponse struct {
	URL string `json:"url"`
}

// ErrorResponse is the JSON body for responses where the failure itself is
// part of the contract, such as the resolver's no-conversation outcome.
type ErrorResponse struct {
	Error string `json:"error"`
}
