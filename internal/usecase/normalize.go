package usecase

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"palm-reader/internal/domain"
)

var (
	leadingFence  = regexp.MustCompile("^```[A-Za-z0-9_-]*")
	trailingFence = regexp.MustCompile("```$")
)

// parseStrategy turns raw model text into a validated reading.
type parseStrategy struct {
	name  string
	parse func(raw string) (domain.Reading, error)
}

var readingParsers = []parseStrategy{
	{name: "direct", parse: decodeReading},
	{name: "fenced", parse: func(raw string) (domain.Reading, error) {
		return decodeReading(stripFences(raw))
	}},
}

// NormalizeReading tries each parser in order and returns the first valid
// reading, or a *MalformedOutputError carrying raw.
func NormalizeReading(raw string) (domain.Reading, error) {
	var errs []error
	for _, p := range readingParsers {
		reading, err := p.parse(raw)
		if err == nil {
			return reading, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", p.name, err))
	}
	return domain.Reading{}, &MalformedOutputError{Raw: raw, Err: errors.Join(errs...)}
}

func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	s = leadingFence.ReplaceAllString(s, "")
	s = trailingFence.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

func decodeReading(raw string) (domain.Reading, error) {
	var out domain.Reading
	dec := json.NewDecoder(bytes.NewBufferString(raw))
	if err := dec.Decode(&out); err != nil {
		return domain.Reading{}, fmt.Errorf("decode reading: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return domain.Reading{}, errors.New("decode reading: multiple JSON values")
		}
		return domain.Reading{}, fmt.Errorf("decode reading trailing data: %w", err)
	}
	if err := ValidateReading(&out); err != nil {
		return domain.Reading{}, err
	}
	return out, nil
}

// ValidateReading enforces the reading contract. A line whose observation and
// meaning are both empty is repaired to nil; a half-populated line is rejected.
func ValidateReading(r *domain.Reading) error {
	lines := []struct {
		name string
		pair **domain.LinePair
	}{
		{"heartLine", &r.HeartLine},
		{"headLine", &r.HeadLine},
		{"lifeLine", &r.LifeLine},
		{"fateLine", &r.FateLine},
	}
	for _, l := range lines {
		p := *l.pair
		if p == nil {
			continue
		}
		obs := strings.TrimSpace(p.Observation) != ""
		meaning := strings.TrimSpace(p.Meaning) != ""
		switch {
		case !obs && !meaning:
			*l.pair = nil
		case !obs || !meaning:
			return fmt.Errorf("%s has only one of observation and meaning", l.name)
		}
	}
	if strings.TrimSpace(r.OverallReading) == "" {
		return errors.New("overallReading is required")
	}
	if strings.TrimSpace(r.Advice) == "" {
		return errors.New("advice is required")
	}
	return nil
}
