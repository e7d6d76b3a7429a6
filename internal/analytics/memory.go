package analytics

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type session struct {
	ID                string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	Title             string
	UserMessages      int
	AssistantMessages int
	Attachments       int
	ReferenceCounts   map[string]int
	Preferences       *Preferences
	Profile           *Profile
}

// Memory is the in-process recorder. State lives for the process lifetime
// and is lost on restart.
type Memory struct {
	mu              sync.Mutex
	sessions        map[string]*session
	history         []Message
	referenceTotals map[string]int
	keywords        *keywordTable

	// Swappable in tests.
	now func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		sessions:        make(map[string]*session),
		referenceTotals: make(map[string]int),
		keywords:        newKeywordTable(),
		now:             time.Now,
	}
}

func (m *Memory) RecordExchange(_ context.Context, ex Exchange) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	id := ex.SessionID
	if id == "" {
		id = uuid.NewString()
	}

	s, ok := m.sessions[id]
	if !ok {
		s = &session{
			ID:              id,
			CreatedAt:       now,
			Title:           deriveSessionTitle(ex.UserMessage),
			ReferenceCounts: make(map[string]int),
		}
		m.sessions[id] = s
	}
	s.UpdatedAt = now
	s.Attachments += len(ex.Attachments)
	// Copy so callers mutating their structs after the call cannot alter
	// recorded state.
	if ex.Preferences != nil {
		p := *ex.Preferences
		s.Preferences = &p
	}
	if ex.Profile != nil {
		p := *ex.Profile
		p.FavoriteTopics = append([]string(nil), ex.Profile.FavoriteTopics...)
		s.Profile = &p
	}

	if ex.UserMessage != "" {
		s.UserMessages++
		m.history = append(m.history, Message{
			Timestamp: now,
			SessionID: id,
			Role:      "user",
			Content:   truncateContent(ex.UserMessage),
		})
		m.keywords.add(ex.UserMessage)
	}
	if ex.AssistantMessage != "" {
		s.AssistantMessages++
		titles := referenceTitles(ex.References)
		m.history = append(m.history, Message{
			Timestamp:  now,
			SessionID:  id,
			Role:       "assistant",
			Content:    truncateContent(ex.AssistantMessage),
			References: titles,
		})
		for _, title := range titles {
			s.ReferenceCounts[title]++
			m.referenceTotals[title]++
		}
	}

	if overflow := len(m.history) - historyCap; overflow > 0 {
		m.history = append(m.history[:0:0], m.history[overflow:]...)
	}
	return id, nil
}

func (m *Memory) Snapshot(_ context.Context) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	snap := &Snapshot{
		TopGuides:   topN(m.referenceTotals, topGuideCount),
		TopKeywords: m.keywords.top(topKeywordCount),
		GeneratedAt: now,
	}

	userTotal, assistantTotal, attachmentTotal := 0, 0, 0
	sessionsWithAttachments := 0
	active := 0
	learners := make(map[string]bool)
	var first, last *time.Time
	sessions := make([]*session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
		userTotal += s.UserMessages
		assistantTotal += s.AssistantMessages
		attachmentTotal += s.Attachments
		if s.Attachments > 0 {
			sessionsWithAttachments++
		}
		if now.Sub(s.UpdatedAt) <= 24*time.Hour {
			active++
		}
		if s.Profile != nil && s.Profile.Name != "" {
			learners[fmt.Sprintf("%s|%s", s.Profile.Name, s.Profile.Grade)] = true
		}
		if first == nil || s.CreatedAt.Before(*first) {
			t := s.CreatedAt
			first = &t
		}
		if last == nil || s.UpdatedAt.After(*last) {
			t := s.UpdatedAt
			last = &t
		}
	}

	snap.Summary = SummaryStats{
		TotalSessions:           len(sessions),
		ActiveSessions24h:       active,
		UserMessages:            userTotal,
		AssistantMessages:       assistantTotal,
		UniqueLearners:          len(learners),
		Attachments:             attachmentTotal,
		SessionsWithAttachments: sessionsWithAttachments,
		FirstMessageAt:          first,
		LastMessageAt:           last,
	}
	if len(sessions) > 0 {
		snap.Summary.AvgMessagesPerSession = roundTo1(float64(userTotal+assistantTotal) / float64(len(sessions)))
	}

	var userTimestamps []time.Time
	for _, msg := range m.history {
		if msg.Role == "user" {
			userTimestamps = append(userTimestamps, msg.Timestamp)
		}
	}
	snap.Usage = usageFrom(userTimestamps, now)

	snap.Audience = audienceFrom(sessions)

	sort.Slice(sessions, func(i, j int) bool { return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt) })
	for _, s := range sessions {
		if len(snap.Sessions) == recentSessionCount {
			break
		}
		snap.Sessions = append(snap.Sessions, SessionOverview{
			ID:                s.ID,
			Title:             s.Title,
			CreatedAt:         s.CreatedAt,
			UpdatedAt:         s.UpdatedAt,
			UserMessages:      s.UserMessages,
			AssistantMessages: s.AssistantMessages,
			TotalMessages:     s.UserMessages + s.AssistantMessages,
			Attachments:       s.Attachments,
			TopReferences:     topN(s.ReferenceCounts, sessionTopRefCount),
		})
	}

	start := len(m.history) - recentMessageCount
	if start < 0 {
		start = 0
	}
	for i := len(m.history) - 1; i >= start; i-- {
		snap.Messages = append(snap.Messages, m.history[i])
	}

	return snap, nil
}

// audienceFrom tallies each session's latest profile and preferences.
func audienceFrom(sessions []*session) AudienceStats {
	programs := make(map[string]int)
	grades := make(map[string]int)
	goals := make(map[string]int)
	topics := make(map[string]int)
	tones := make(map[string]int)
	details := make(map[string]int)
	var steps, practice BoolCount

	for _, s := range sessions {
		if p := s.Profile; p != nil {
			if p.Program != "" {
				programs[p.Program]++
			}
			if p.Grade != "" {
				grades[p.Grade]++
			}
			if p.Goal != "" {
				goals[p.Goal]++
			}
			for _, t := range p.FavoriteTopics {
				if t != "" {
					topics[t]++
				}
			}
		}
		if p := s.Preferences; p != nil {
			if p.Tone != "" {
				tones[p.Tone]++
			}
			if p.Detail != "" {
				details[p.Detail]++
			}
			if p.IncludeScratchSteps != nil {
				if *p.IncludeScratchSteps {
					steps.True++
				} else {
					steps.False++
				}
			}
			if p.IncludePracticeIdeas != nil {
				if *p.IncludePracticeIdeas {
					practice.True++
				} else {
					practice.False++
				}
			}
		}
	}

	return AudienceStats{
		Programs:       topN(programs, 0),
		Grades:         topN(grades, 0),
		Goals:          topN(goals, 0),
		FavoriteTopics: topN(topics, 0),
		Tones:          topN(tones, 0),
		DetailLevels:   topN(details, 0),
		ScratchSteps:   steps,
		PracticeIdeas:  practice,
	}
}
