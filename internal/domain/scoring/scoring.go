// Package scoring computes the 0-100 integrity score for an incident.
package scoring

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hedvall/vakthund/internal/domain/feedtime"
	"github.com/hedvall/vakthund/internal/domain/model"
)

// Point awards per criterion. Strictly additive; each criterion is
// independent of the others.
const (
	gpsPoints            = 30
	narrativePoints      = 30
	shortNarrativePoints = 15
	temporalPoints       = 20
	delayedPoints        = 10
	locationTagPoints    = 20

	maxScoreValue          = 100
	lowConfidenceThreshold = 50

	// narrativeMinRunes is the exclusive boundary between "very short" and
	// full narrative credit: 16 runes earn 30 points, 15 earn 15.
	narrativeMinRunes = 15

	// staleAfter is how old an event may be before it only earns partial
	// temporal credit.
	staleAfter = 30 * 24 * time.Hour

	// gpsSentinel is the literal placeholder the feed uses for "no fix".
	// Comparison is textual; numeric validity is a presentation concern.
	gpsSentinel = "0,0"
)

// Deduction reason strings, in criterion order.
const (
	ReasonMissingGPS       = "Missing GPS coordinates"
	ReasonAdministrative   = "Administrative notice (not a specific incident)"
	ReasonShortDescription = "Very short description"
	ReasonNoDescription    = "No description at all"
	ReasonInvalidTimestamp = "Invalid timestamp format"
	ReasonFutureDate       = "Event date is in the future"
	ReasonDelayed          = "Event is significantly delayed/old"
	ReasonMissingLocation  = "Missing proper location tags"
)

// DefaultTriggerPhrases is the administrative boilerplate the Swedish feed
// emits. Lowercase; matched as substrings of the lowercased summary.
var DefaultTriggerPhrases = []string{
	"frågor från media",
	"ingen presstalesperson i tjänst",
	"ändrade öppettider",
}

// Option applies a configuration option to the IntegrityScorer.
type Option func(*IntegrityScorer)

// WithTriggerPhrases replaces the administrative-noise phrase set. Phrases
// are lowercased; an empty list keeps the default.
func WithTriggerPhrases(phrases []string) Option {
	return func(s *IntegrityScorer) {
		if len(phrases) == 0 {
			return
		}
		s.triggerPhrases = make([]string, len(phrases))
		for i, p := range phrases {
			s.triggerPhrases[i] = strings.ToLower(p)
		}
	}
}

// IntegrityScorer scores incidents. Pure and deterministic given the same
// incident and reference time; never returns an error, missing or malformed
// fields are zero-credit deductions instead.
type IntegrityScorer struct {
	triggerPhrases []string
}

// New creates an IntegrityScorer with configuration options.
func New(opts ...Option) *IntegrityScorer {
	s := &IntegrityScorer{
		triggerPhrases: DefaultTriggerPhrases,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score computes the integrity assessment for in, using now as the reference
// time for the temporal criterion. Reasons are ordered by criterion and a
// criterion that earned full credit contributes no reason.
func (s *IntegrityScorer) Score(in model.Incident, now time.Time) model.Assessment {
	score := 0
	reasons := []string{}

	// 1. Location precision: GPS text present and not the "0,0" sentinel.
	if in.Location != nil && in.Location.GPS != "" && in.Location.GPS != gpsSentinel {
		score += gpsPoints
	} else {
		reasons = append(reasons, ReasonMissingGPS)
	}

	// 2. Narrative quality. Administrative boilerplate earns nothing
	// regardless of length.
	if s.isAdministrative(in.Summary) {
		reasons = append(reasons, ReasonAdministrative)
	} else {
		switch textLen := utf8.RuneCountInString(in.Summary) + utf8.RuneCountInString(in.Description); {
		case textLen > narrativeMinRunes:
			score += narrativePoints
		case textLen > 0:
			score += shortNarrativePoints
			reasons = append(reasons, ReasonShortDescription)
		default:
			reasons = append(reasons, ReasonNoDescription)
		}
	}

	// 3. Temporal plausibility.
	switch eventTime, err := feedtime.Normalize(in.Datetime); {
	case err != nil:
		reasons = append(reasons, ReasonInvalidTimestamp)
	case eventTime.After(now):
		reasons = append(reasons, ReasonFutureDate)
	case now.Sub(eventTime) > staleAfter:
		score += delayedPoints
		reasons = append(reasons, ReasonDelayed)
	default:
		score += temporalPoints
	}

	// 4. Location tagging.
	if in.Location != nil && in.Location.Name != "" {
		score += locationTagPoints
	} else {
		reasons = append(reasons, ReasonMissingLocation)
	}

	return model.Assessment{
		Score:           score,
		Reasons:         reasons,
		IsLowConfidence: score < lowConfidenceThreshold,
	}
}

func (s *IntegrityScorer) isAdministrative(summary string) bool {
	lower := strings.ToLower(summary)
	for _, phrase := range s.triggerPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
