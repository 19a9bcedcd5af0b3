package seedevents

import (
	"crypto/rand"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/beewell/momentum/internal/domain/model"
)

// Engagement archetypes. Each synthetic user is assigned one and keeps
// it for the whole generated history.
const (
	archetypeThriving   = 0 // frequent, high-value events
	archetypeSteady     = 1 // moderate daily activity
	archetypeFading     = 2 // activity tapers off toward today
	archetypeStruggling = 3 // sparse, low-value events
	archetypeCount      = 4
)

const randomDivisor = 1000000

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomDivisor))
	return float64(n.Int64()) / float64(randomDivisor)
}

// getRandomInt returns a random int in [0, max).
func getRandomInt(max int) int {
	n, _ := rand.Int(rand.Reader, big.NewInt(int64(max)))
	return int(n.Int64())
}

// richEvents are the types a highly engaged user produces.
var richEvents = []string{
	model.EventLessonCompletion,
	model.EventCoachInteraction,
	model.EventGoalCompletion,
	model.EventStreakMilestone,
	model.EventAssessmentCompletion,
	model.EventJournalEntry,
}

// lightEvents are the low-effort types every archetype produces.
var lightEvents = []string{
	model.EventAppSession,
	model.EventLessonStart,
	model.EventResourceAccess,
	model.EventPeerInteraction,
	model.EventReminderResponse,
	model.EventGoalSetting,
}

// generator produces a synthetic history for one user.
type generator struct {
	userID    string
	archetype int
}

func newGenerator() *generator {
	return &generator{
		userID:    uuid.NewString(),
		archetype: getRandomInt(archetypeCount),
	}
}

// eventsForDay generates the user's events for one calendar day.
// daysAgo counts back from the end of the range; fading users use it to
// taper their activity.
func (g *generator) eventsForDay(day time.Time, daysAgo, totalDays int) []model.EngagementEvent {
	count := g.dailyCount(daysAgo, totalDays)
	events := make([]model.EngagementEvent, 0, count)
	for i := 0; i < count; i++ {
		events = append(events, model.EngagementEvent{
			ID:        uuid.NewString(),
			UserID:    g.userID,
			EventType: g.pickType(),
			EventDate: day,
			Timestamp: day.Add(time.Duration(getRandomInt(24)) * time.Hour),
			Metadata:  map[string]string{"seeded": "true"},
		})
	}
	return events
}

func (g *generator) dailyCount(daysAgo, totalDays int) int {
	switch g.archetype {
	case archetypeThriving:
		return 3 + getRandomInt(4)
	case archetypeSteady:
		return 1 + getRandomInt(3)
	case archetypeFading:
		// Full activity at the start of the range, next to none at the end.
		progress := 1.0 - float64(daysAgo)/float64(totalDays)
		if getRandomFloat() < progress {
			return 0
		}
		return 1 + getRandomInt(3)
	default:
		if getRandomFloat() < 0.6 {
			return 0
		}
		return 1 + getRandomInt(2)
	}
}

func (g *generator) pickType() string {
	richChance := 0.5
	switch g.archetype {
	case archetypeThriving:
		richChance = 0.7
	case archetypeStruggling:
		richChance = 0.1
	}
	if getRandomFloat() < richChance {
		return richEvents[getRandomInt(len(richEvents))]
	}
	return lightEvents[getRandomInt(len(lightEvents))]
}
