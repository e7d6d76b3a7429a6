package server

import (
	"github.com/mindx-labs/stemchat/internal/analytics"
	"github.com/mindx-labs/stemchat/internal/retrieval"
	"github.com/mindx-labs/stemchat/internal/sb3"
	"github.com/mindx-labs/stemchat/provider"
)

// HTTPError is the unified error body.
type HTTPError struct {
	Error string `json:"error"`
}

type ChatRequest struct {
	SessionID   string                 `json:"sessionId,omitempty"`
	Message     string                 `json:"message"`
	Hint        string                 `json:"hint,omitempty"`
	History     []provider.Message     `json:"history,omitempty"`
	Preferences *analytics.Preferences `json:"preferences,omitempty"`
	Profile     *analytics.Profile     `json:"profile,omitempty"`
	Attachments []analytics.Attachment `json:"attachments,omitempty"`
}

type ChatResponse struct {
	SessionID  string            `json:"sessionId"`
	Reply      string            `json:"reply"`
	References []retrieval.Match `json:"references"`
	Commands   [][]string        `json:"commands,omitempty"`
}

type UploadResponse struct {
	Summary sb3.Summary `json:"summary"`
	Report  string      `json:"report"`
}

type ExportRequest struct {
	Content string `json:"content"`
	Title   string `json:"title,omitempty"`
}

type AdminLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type TokenResponse struct {
	Token string `json:"token"`
}
