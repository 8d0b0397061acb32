package bato

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// ChatSession is a stored conversation.
type ChatSession struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Messages  []Message `json:"messages,omitempty"`
}

// RoadmapRef is the summary of a roadmap attached to a message.
type RoadmapRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Goal  string `json:"goal"`
}

// Message is a stored chat message.
type Message struct {
	ID            string      `json:"id"`
	ChatSessionID string      `json:"chatSessionId"`
	Role          Role        `json:"role"`
	Content       string      `json:"content"`
	CreatedAt     time.Time   `json:"createdAt"`
	RoadmapID     string      `json:"roadmapId,omitempty"`
	Roadmap       *RoadmapRef `json:"roadmap,omitempty"`
}

// CreateChatRequest is the body of a CreateChat call.
type CreateChatRequest struct {
	UserID         string `json:"userId"`
	InitialMessage string `json:"initialMessage,omitempty"`
}

// AddMessageRequest is the body of an AddMessage call.
type AddMessageRequest struct {
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	RoadmapID string `json:"roadmapId,omitempty"`
}

// ListChats returns the chat sessions of a user.
func (c *Client) ListChats(ctx context.Context, userID string) ([]ChatSession, error) {
	var chats []ChatSession
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/api/chats",
		query:  url.Values{"userId": {userID}},
		cached: true,
	}, &chats)
	if err != nil {
		return nil, err
	}
	return chats, nil
}

// GetChat returns a single chat session.
func (c *Client) GetChat(ctx context.Context, chatID string) (*ChatSession, error) {
	var chat ChatSession
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/api/chats/" + url.PathEscape(chatID),
		cached: true,
	}, &chat)
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

// GetChatMessages returns the messages of a chat session, oldest first.
func (c *Client) GetChatMessages(ctx context.Context, chatID string) ([]Message, error) {
	var msgs []Message
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/api/chats/" + url.PathEscape(chatID) + "/messages",
		cached: true,
	}, &msgs)
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

// CreateChat starts a new chat session.
func (c *Client) CreateChat(ctx context.Context, req *CreateChatRequest) (*ChatSession, error) {
	var chat ChatSession
	err := c.do(ctx, request{
		method:     http.MethodPost,
		path:       "/api/chats",
		body:       req,
		invalidate: []string{"/api/chats?" + url.Values{"userId": {req.UserID}}.Encode()},
	}, &chat)
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

// AddMessage appends a message to a chat session.
func (c *Client) AddMessage(ctx context.Context, chatID string, req *AddMessageRequest) (*Message, error) {
	path := "/api/chats/" + url.PathEscape(chatID) + "/messages"

	var msg Message
	err := c.do(ctx, request{
		method:     http.MethodPost,
		path:       path,
		body:       req,
		invalidate: []string{path},
	}, &msg)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// DeleteChat removes a chat session.
func (c *Client) DeleteChat(ctx context.Context, chatID string) error {
	return c.do(ctx, request{
		method: http.MethodDelete,
		path:   "/api/chats/" + url.PathEscape(chatID),
		// The user's chat list is keyed by user, not chat, so drop it as well.
		invalidate: []string{chatID, "/api/chats?"},
	}, nil)
}

// UpdateChatTitle renames a chat session.
func (c *Client) UpdateChatTitle(ctx context.Context, chatID, title string) (*ChatSession, error) {
	var chat ChatSession
	err := c.do(ctx, request{
		method:     http.MethodPatch,
		path:       "/api/chats/" + url.PathEscape(chatID),
		body:       map[string]string{"title": title},
		invalidate: []string{chatID, "/api/chats?"},
	}, &chat)
	if err != nil {
		return nil, err
	}
	return &chat, nil
}
