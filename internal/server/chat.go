package server

import (
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mindx-labs/stemchat/internal/analytics"
	"github.com/mindx-labs/stemchat/internal/commands"
	"github.com/mindx-labs/stemchat/internal/retrieval"
	"github.com/mindx-labs/stemchat/provider"
)

// chatReferenceLimit is wider than the default so the tutor has more
// context to cite from.
const chatReferenceLimit = 4

type ChatHandler struct {
	Index    *retrieval.Index
	LLM      provider.Provider
	Recorder analytics.Recorder
	Logger   *log.Logger
}

func (h *ChatHandler) Register(g *echo.Group) {
	g.POST("", h.chat)
	g.POST("/", h.chat)
}

func (h *ChatHandler) chat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Message) == "" && strings.TrimSpace(req.Hint) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message is required")
	}

	query := req.Message
	if strings.TrimSpace(query) == "" {
		query = req.Hint
	}
	references := h.Index.Query(query, chatReferenceLimit)

	system := buildSystemPrompt(references, req.Preferences, req.Profile)
	history := append(append([]provider.Message{}, req.History...), provider.Message{
		Role:    "user",
		Content: req.Message,
	})

	reply, err := h.LLM.Generate(c.Request().Context(), system, history)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "the tutor is unavailable right now")
	}

	sessionID := h.record(c, req, reply, references)

	return c.JSON(http.StatusOK, ChatResponse{
		SessionID:  sessionID,
		Reply:      reply,
		References: references,
		Commands:   commands.Extract(reply),
	})
}

// record logs the exchange best-effort: analytics must never fail the chat
// response.
func (h *ChatHandler) record(c echo.Context, req ChatRequest, reply string, references []retrieval.Match) string {
	refs := make([]analytics.Reference, 0, len(references))
	for _, m := range references {
		refs = append(refs, analytics.Reference{ID: m.SourceID, Title: m.DisplayTitle, Rating: m.Rating})
	}
	sessionID, err := h.Recorder.RecordExchange(c.Request().Context(), analytics.Exchange{
		SessionID:        req.SessionID,
		UserMessage:      req.Message,
		AssistantMessage: reply,
		Attachments:      req.Attachments,
		Preferences:      req.Preferences,
		Profile:          req.Profile,
		References:       refs,
	})
	if err != nil {
		analyticsFallbacks.Inc()
		h.Logger.Printf("record exchange: %v", err)
		return req.SessionID
	}
	exchangesRecorded.Inc()
	return sessionID
}

func buildSystemPrompt(references []retrieval.Match, prefs *analytics.Preferences, profile *analytics.Profile) string {
	var sb strings.Builder
	sb.WriteString("You are a patient STEM tutor helping children learn Scratch programming. ")
	sb.WriteString("Answer in the learner's language. When you suggest block sequences, write them as `Category > Block` chains joined with ->.\n")

	if profile != nil {
		if profile.Name != "" {
			fmt.Fprintf(&sb, "The learner's name is %s.\n", profile.Name)
		}
		if profile.Grade != "" {
			fmt.Fprintf(&sb, "They are in grade %s.\n", profile.Grade)
		}
		if profile.Goal != "" {
			fmt.Fprintf(&sb, "Their goal: %s.\n", profile.Goal)
		}
	}
	if prefs != nil {
		if prefs.Tone != "" {
			fmt.Fprintf(&sb, "Use a %s tone.\n", prefs.Tone)
		}
		if prefs.Detail != "" {
			fmt.Fprintf(&sb, "Detail level: %s.\n", prefs.Detail)
		}
	}

	if len(references) > 0 {
		sb.WriteString("\nRelevant excerpts from the teaching guides:\n")
		for _, m := range references {
			fmt.Fprintf(&sb, "[%s]\n%s\n\n", m.DisplayTitle, m.Text)
		}
		sb.WriteString("Ground your answer in these excerpts when they apply.")
	}
	return sb.String()
}
