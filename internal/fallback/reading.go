package fallback

import (
	"errors"
	"strings"
	"time"

	"palm-reader/internal/domain"
)

// ReadingSynthesizer builds a complete reading from the content bank. Two
// calls within the same millisecond with the same input return the same
// reading.
type ReadingSynthesizer struct {
	bank  *Bank
	clock Clock
}

// NewReadingSynthesizer returns a synthesizer over bank. A nil clock uses
// time.Now.
func NewReadingSynthesizer(bank *Bank, clock Clock) (*ReadingSynthesizer, error) {
	if bank == nil {
		return nil, errors.New("fallback: content bank must not be nil")
	}
	if clock == nil {
		clock = time.Now
	}
	return &ReadingSynthesizer{bank: bank, clock: clock}, nil
}

// Synthesize never fails.
func (s *ReadingSynthesizer) Synthesize(hand domain.Hand, focusArea string) domain.Reading {
	st := newStreams(Seed(s.clock))

	line := func(pool LinePool) *domain.LinePair {
		return &domain.LinePair{
			Observation: pick(pool.Observations, st.a),
			Meaning:     pick(pool.Meanings, st.b),
		}
	}

	overall := pick(s.bank.Overall, st.c)
	overall = strings.Replace(overall, contextMarker, s.contextClause(hand, focusArea), 1)

	return domain.Reading{
		HeartLine: line(s.bank.Lines.Heart),
		HeadLine:  line(s.bank.Lines.Head),
		LifeLine:  line(s.bank.Lines.Life),
		FateLine: &domain.LinePair{
			Observation: s.bank.Fate.Observation,
			Meaning:     s.bank.Fate.Meaning,
		},
		OverallReading: overall,
		Advice:         pick(s.bank.Advice, st.a),
	}
}

func (s *ReadingSynthesizer) contextClause(hand domain.Hand, focusArea string) string {
	focus := clauseSafe(focusArea)
	var clause string
	switch {
	case hand != domain.HandUnset && focus != "":
		clause = s.bank.Context.HandAndFocus
	case hand != domain.HandUnset:
		clause = s.bank.Context.HandOnly
	case focus != "":
		clause = s.bank.Context.FocusOnly
	default:
		return s.bank.Context.Generic
	}
	return strings.NewReplacer("{hand}", string(hand), "{focus}", focus).Replace(clause)
}

// clauseSafe keeps user text from adding sentences to the overall reading.
func clauseSafe(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	s = strings.TrimRight(s, ".!?;: ")
	return strings.NewReplacer(". ", " ", "! ", " ", "? ", " ").Replace(s)
}
