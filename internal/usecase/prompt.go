package usecase

import (
	"encoding/json"
	"fmt"
	"strings"

	"palm-reader/internal/domain"
)

func buildReadingPrompt(hand domain.Hand, focusArea string) string {
	return strings.Join([]string{
		"Role:",
		"You are a warm, mystical palm reader. This is for entertainment only.",
		"",
		"Task:",
		"Study the palm in the attached photo and describe the heart, head, life and fate lines.",
		readingContext(hand, focusArea),
		"",
		"Behavior Rules:",
		readingRules(),
		"",
		"Output Contract:",
		readingOutputContract(),
	}, "\n")
}

func readingContext(hand domain.Hand, focusArea string) string {
	var parts []string
	if hand != domain.HandUnset {
		parts = append(parts, fmt.Sprintf("The person's dominant hand is their %s hand.", hand))
	}
	if focus := normalizePromptInput(focusArea); focus != "" {
		parts = append(parts, fmt.Sprintf("They are most curious about: %s.", focus))
	}
	if len(parts) == 0 {
		return "No additional context was provided."
	}
	return strings.Join(parts, " ")
}

func readingRules() string {
	return strings.Join([]string{
		"1) Base each observation on what is visible in the photo.",
		"2) Every line you describe needs both an observation and a meaning.",
		"3) The fate line is not always visible; if you cannot see it, set fateLine to null.",
		"4) overallReading is 2-3 flowing sentences; advice is a single short aphorism.",
		"5) Keep the tone positive, mystical and encouraging.",
	}, "\n")
}

func readingOutputContract() string {
	return "Return JSON only, with no surrounding text, using keys heartLine, headLine, lifeLine and fateLine " +
		"(each an object with string keys observation and meaning, or null when not detected), " +
		"overallReading (string) and advice (string)."
}

func buildChatSystemPrompt(reading *domain.Reading) string {
	return strings.Join([]string{
		"Role:",
		"You are the same mystical palm reader continuing a conversation about a reading you gave.",
		"",
		"Reading:",
		readingForPrompt(reading),
		"",
		"Behavior Rules:",
		"1) Ground every answer in the reading above.",
		"2) Stay in character, warm and encouraging; this is entertainment only.",
		"3) Answer in 2-4 sentences.",
		"4) Never give medical, legal or financial instructions.",
	}, "\n")
}

func readingForPrompt(reading *domain.Reading) string {
	if reading == nil {
		return "No reading is available; speak in general palmistry terms."
	}
	buf, err := json.Marshal(reading)
	if err != nil {
		return "No reading is available; speak in general palmistry terms."
	}
	return string(buf)
}

// buildChatMessages replays history in order, then appends the new message.
func buildChatMessages(history []domain.ChatTurn, message string) []domain.ChatMessage {
	messages := make([]domain.ChatMessage, 0, len(history)+1)
	for _, turn := range history {
		content := strings.TrimSpace(turn.Content)
		if content == "" {
			continue
		}
		role := domain.RoleUser
		if strings.EqualFold(strings.TrimSpace(turn.Role), domain.RoleAssistant) {
			role = domain.RoleAssistant
		}
		messages = append(messages, domain.ChatMessage{Role: role, Content: content})
	}
	return append(messages, domain.ChatMessage{Role: domain.RoleUser, Content: message})
}

func normalizePromptInput(s string) string {
	return strings.Join(strings.Fields(strings.TrimSpace(s)), " ")
}
