package bato

// Role is the author of a chat message, either "user" or "assistant".
type Role string

const (
	// RoleUser marks messages typed by the learner.
	RoleUser Role = "user"

	// RoleAssistant marks messages generated by the backend.
	RoleAssistant Role = "assistant"
)
