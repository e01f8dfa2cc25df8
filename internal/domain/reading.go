package domain

import "strings"

// Hand is the user's dominant hand. The zero value means unset.
type Hand string

const (
	HandUnset Hand = ""
	HandLeft  Hand = "left"
	HandRight Hand = "right"
)

// ParseHand normalizes free-form input; anything but left/right is unset.
func ParseHand(s string) Hand {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(HandLeft):
		return HandLeft
	case string(HandRight):
		return HandRight
	default:
		return HandUnset
	}
}

// LinePair is an observation about a palm line and what it means.
type LinePair struct {
	Observation string `json:"observation"`
	Meaning     string `json:"meaning"`
}

// Complete reports whether both halves of the pair are populated.
func (p LinePair) Complete() bool {
	return strings.TrimSpace(p.Observation) != "" && strings.TrimSpace(p.Meaning) != ""
}

// Reading is the structured palm interpretation returned to callers. A nil
// line means the line was not detected.
type Reading struct {
	HeartLine      *LinePair `json:"heartLine"`
	HeadLine       *LinePair `json:"headLine"`
	LifeLine       *LinePair `json:"lifeLine"`
	FateLine       *LinePair `json:"fateLine"`
	OverallReading string    `json:"overallReading"`
	Advice         string    `json:"advice"`
}

// Lines returns the four line pairs keyed by their JSON name.
func (r Reading) Lines() map[string]*LinePair {
	return map[string]*LinePair{
		"heartLine": r.HeartLine,
		"headLine":  r.HeadLine,
		"lifeLine":  r.LifeLine,
		"fateLine":  r.FateLine,
	}
}

// Image is a decoded photo ready to be sent to a vision model.
type Image struct {
	MIMEType string
	Data     []byte
}

// ReadingRequest carries the raw data URI and optional user context.
type ReadingRequest struct {
	Image        string
	DominantHand Hand
	FocusArea    string
}
