// Package analytics accumulates chat activity into an admin-facing
// read model. Two recorder backends share one contract: an in-memory
// store for development and a Postgres store for durable deployments,
// with a fallback wrapper that degrades from the latter to the former.
package analytics

import "time"

// Attachment describes a file the learner sent with a message.
type Attachment struct {
	Name string `json:"name"`
	Kind string `json:"kind,omitempty"`
}

// Reference is one teaching-guide citation attached to an assistant reply.
type Reference struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Rating float64 `json:"rating,omitempty"`
}

// Preferences are the learner's tutoring knobs as last reported.
type Preferences struct {
	Tone                 string `json:"tone,omitempty"`
	Detail               string `json:"detail,omitempty"`
	IncludeScratchSteps  *bool  `json:"includeScratchSteps,omitempty"`
	IncludePracticeIdeas *bool  `json:"includePracticeIdeas,omitempty"`
}

// Profile is the learner's self-description as last reported.
type Profile struct {
	Name           string   `json:"name,omitempty"`
	Grade          string   `json:"grade,omitempty"`
	Program        string   `json:"program,omitempty"`
	Goal           string   `json:"goal,omitempty"`
	FavoriteTopics []string `json:"favoriteTopics,omitempty"`
}

// Exchange is one chat round-trip to record. Either message side may be
// empty; an absent SessionID mints a new session.
type Exchange struct {
	SessionID        string
	UserMessage      string
	AssistantMessage string
	Attachments      []Attachment
	Preferences      *Preferences
	Profile          *Profile
	References       []Reference
}

// Message is one entry in the bounded message history.
type Message struct {
	Timestamp  time.Time `json:"timestamp"`
	SessionID  string    `json:"sessionId"`
	Role       string    `json:"role"`
	Content    string    `json:"content"`
	References []string  `json:"references,omitempty"`
}

// CountEntry pairs a display name with its frequency.
type CountEntry struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// BucketCount is one histogram bucket.
type BucketCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// BoolCount tallies a boolean preference flag.
type BoolCount struct {
	True  int `json:"true"`
	False int `json:"false"`
}

// SummaryStats are the snapshot's headline totals.
type SummaryStats struct {
	TotalSessions           int        `json:"totalSessions"`
	ActiveSessions24h       int        `json:"activeSessions24h"`
	UserMessages            int        `json:"userMessages"`
	AssistantMessages       int        `json:"assistantMessages"`
	AvgMessagesPerSession   float64    `json:"avgMessagesPerSession"`
	UniqueLearners          int        `json:"uniqueLearners"`
	Attachments             int        `json:"attachments"`
	SessionsWithAttachments int        `json:"sessionsWithAttachments"`
	FirstMessageAt          *time.Time `json:"firstMessageAt,omitempty"`
	LastMessageAt           *time.Time `json:"lastMessageAt,omitempty"`
}

// UsageStats are the snapshot's time-bucketed histograms over user
// messages: 24 hourly buckets, 7 weekday buckets Sunday-first, and a
// sliding 14-day window ending today. Empty buckets are present with
// count zero.
type UsageStats struct {
	Hourly  []BucketCount `json:"hourly"`
	Weekday []BucketCount `json:"weekday"`
	Daily   []BucketCount `json:"daily"`
}

// AudienceStats are categorical breakdowns over each session's latest
// profile and preferences.
type AudienceStats struct {
	Programs       []CountEntry `json:"programs"`
	Grades         []CountEntry `json:"grades"`
	Goals          []CountEntry `json:"goals"`
	FavoriteTopics []CountEntry `json:"favoriteTopics"`
	Tones          []CountEntry `json:"tones"`
	DetailLevels   []CountEntry `json:"detailLevels"`
	ScratchSteps   BoolCount    `json:"scratchSteps"`
	PracticeIdeas  BoolCount    `json:"practiceIdeas"`
}

// SessionOverview is one row in the snapshot's recent-sessions list.
type SessionOverview struct {
	ID                string       `json:"id"`
	Title             string       `json:"title"`
	CreatedAt         time.Time    `json:"createdAt"`
	UpdatedAt         time.Time    `json:"updatedAt"`
	UserMessages      int          `json:"userMessages"`
	AssistantMessages int          `json:"assistantMessages"`
	TotalMessages     int          `json:"totalMessages"`
	Attachments       int          `json:"attachments"`
	TopReferences     []CountEntry `json:"topReferences,omitempty"`
}

// Snapshot is the full analytics read model handed to the admin dashboard.
type Snapshot struct {
	Summary     SummaryStats      `json:"summary"`
	Usage       UsageStats        `json:"usage"`
	TopGuides   []CountEntry      `json:"topGuides"`
	TopKeywords []CountEntry      `json:"topKeywords"`
	Audience    AudienceStats     `json:"audience"`
	Sessions    []SessionOverview `json:"sessions"`
	Messages    []Message         `json:"messages"`
	GeneratedAt time.Time         `json:"generatedAt"`
}
