package engagement

import (
	"fmt"

	"github.com/mrlokans/bookverse/internal/entities"
)

// Stats are the counters badge rules are evaluated against.
type Stats struct {
	BooksRead     int
	ReadingStreak int
	Reviews       int64
}

// BadgeRule awards a badge once its metric reaches Threshold.
type BadgeRule struct {
	Type        entities.BadgeType
	Name        string
	Description string
	Threshold   int64
	Metric      func(Stats) int64
}

func booksRead(s Stats) int64 { return int64(s.BooksRead) }
func readingStreak(s Stats) int64 { return int64(s.ReadingStreak) }
func reviewsWritten(s Stats) int64 { return s.Reviews }

// BadgeRules lists every badge in the order it is checked.
var BadgeRules = []BadgeRule{
	{entities.BadgeTypeReader, "BookVerse", "Read 5 books", 5, booksRead},
	{entities.BadgeTypeReader, "Bibliophile", "Read 10 books", 10, booksRead},
	{entities.BadgeTypeReader, "Consistent Reader", "3-day reading streak", 3, readingStreak},
	{entities.BadgeTypeReader, "Dedicated Reader", "7-day reading streak", 7, readingStreak},
	{entities.BadgeTypeReviewer, "Reviewer", "Posted 3 reviews", 3, reviewsWritten},
	{entities.BadgeTypeReviewer, "Critic", "Posted 10 reviews", 10, reviewsWritten},
}

// Earned returns the rules whose threshold s meets.
func Earned(s Stats) []BadgeRule {
	var out []BadgeRule
	for _, rule := range BadgeRules {
		if rule.Metric(s) >= rule.Threshold {
			out = append(out, rule)
		}
	}
	return out
}

// Notification tells a user about a badge they just earned. It is shown
// once, in the response to the action that earned it.
type Notification struct {
	Badge   entities.Badge `json:"badge"`
	Message string         `json:"message"`
}

func notify(badge entities.Badge) Notification {
	return Notification{
		Badge:   badge,
		Message: fmt.Sprintf("New Achievement: %s!", badge.BadgeName),
	}
}
