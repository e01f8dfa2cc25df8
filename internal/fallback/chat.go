package fallback

import (
	"errors"
	"math/rand/v2"
	"strings"
)

// CategoryGeneral is returned when no keyword matches.
const CategoryGeneral = "general"

// ChatResponder answers follow-up questions from the content bank.
type ChatResponder struct {
	bank *Bank
	intn func(n int) int
}

// NewChatResponder returns a responder over bank.
func NewChatResponder(bank *Bank) (*ChatResponder, error) {
	if bank == nil {
		return nil, errors.New("fallback: content bank must not be nil")
	}
	return &ChatResponder{bank: bank, intn: rand.IntN}, nil
}

// Classify returns the first category, in bank order, with a keyword
// contained in message.
func (r *ChatResponder) Classify(message string) string {
	lower := strings.ToLower(message)
	for _, c := range r.bank.Chat.Categories {
		for _, kw := range c.Keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				return c.Name
			}
		}
	}
	return CategoryGeneral
}

// Reply picks a random line from the pool of message's category.
func (r *ChatResponder) Reply(message string) string {
	pool := r.bank.Chat.General
	category := r.Classify(message)
	for _, c := range r.bank.Chat.Categories {
		if c.Name == category {
			pool = c.Replies
			break
		}
	}
	return pool[r.intn(len(pool))]
}
