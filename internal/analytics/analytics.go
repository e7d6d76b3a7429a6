package analytics

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// Recorder is the contract both analytics backends implement. Callers may
// swap backends with no interface change.
type Recorder interface {
	// RecordExchange applies one chat round-trip and returns the effective
	// session id (minted when the exchange carried none).
	RecordExchange(ctx context.Context, ex Exchange) (string, error)
	// Snapshot produces the full read model. Pure read.
	Snapshot(ctx context.Context) (*Snapshot, error)
}

const (
	historyCap          = 2000
	contentMaxLen       = 800
	titleMaxLen         = 48
	topGuideCount       = 15
	topKeywordCount     = 20
	recentSessionCount  = 10
	recentMessageCount  = 40
	sessionTopRefCount  = 5
	dailyWindowDays     = 14
	defaultSessionTitle = "new conversation"
)

// deriveSessionTitle takes the first line of the first user message, capped
// at 48 runes with an ellipsis.
func deriveSessionTitle(userMessage string) string {
	line := userMessage
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return defaultSessionTitle
	}
	runes := []rune(line)
	if len(runes) > titleMaxLen {
		return string(runes[:titleMaxLen]) + "…"
	}
	return line
}

// truncateContent caps message bodies stored in history.
func truncateContent(s string) string {
	runes := []rune(s)
	if len(runes) > contentMaxLen {
		return string(runes[:contentMaxLen]) + "…"
	}
	return s
}

func roundTo1(f float64) float64 {
	return math.Round(f*10) / 10
}

func referenceTitles(refs []Reference) []string {
	if len(refs) == 0 {
		return nil
	}
	titles := make([]string, 0, len(refs))
	for _, r := range refs {
		if t := strings.TrimSpace(r.Title); t != "" {
			titles = append(titles, t)
		}
	}
	return titles
}

// topN ranks a frequency map descending by count, names ascending on ties
// so snapshots are stable between calls.
func topN(counts map[string]int, n int) []CountEntry {
	entries := make([]CountEntry, 0, len(counts))
	for name, count := range counts {
		entries = append(entries, CountEntry{Name: name, Count: count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Name < entries[j].Name
	})
	if n > 0 && len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

var weekdayLabels = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// usageFrom buckets user-message timestamps into the three histograms.
func usageFrom(timestamps []time.Time, now time.Time) UsageStats {
	hourly := make([]BucketCount, 24)
	for h := range hourly {
		hourly[h] = BucketCount{Label: fmt.Sprintf("%02d", h)}
	}
	weekday := make([]BucketCount, 7)
	for d := range weekday {
		weekday[d] = BucketCount{Label: weekdayLabels[d]}
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	daily := make([]BucketCount, dailyWindowDays)
	dayIndex := make(map[string]int, dailyWindowDays)
	for i := range daily {
		day := today.AddDate(0, 0, i-(dailyWindowDays-1))
		label := day.Format("2006-01-02")
		daily[i] = BucketCount{Label: label}
		dayIndex[label] = i
	}

	for _, ts := range timestamps {
		hourly[ts.Hour()].Count++
		weekday[int(ts.Weekday())].Count++
		if i, ok := dayIndex[ts.Format("2006-01-02")]; ok {
			daily[i].Count++
		}
	}
	return UsageStats{Hourly: hourly, Weekday: weekday, Daily: daily}
}
