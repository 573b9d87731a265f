package suggest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gitlab.com/yelinaung/expense-tracker/internal/apperr"
	"gitlab.com/yelinaung/expense-tracker/internal/logger"
	"gitlab.com/yelinaung/expense-tracker/internal/models"
	"google.golang.org/genai"
)

const (
	requestTimeout     = 10 * time.Second
	maxReasoningLength = 500
)

// Suggestion is the model's pick for a label.
type Suggestion struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// SuggestCategory picks one of categories for label.
func (c *Client) SuggestCategory(ctx context.Context, label string, categories []string) (*Suggestion, error) {
	log := logger.Component("suggest").With().
		Str("label", logger.SanitizeDescription(label)).
		Int("category_count", len(categories)).
		Logger()

	if c == nil || c.generator == nil {
		return nil, fmt.Errorf("gemini client not initialized")
	}
	if strings.TrimSpace(label) == "" {
		return nil, apperr.Validation("label is required")
	}

	allowed := uniqueNames(categories)
	if len(allowed) == 0 {
		return nil, apperr.Validation("no categories available")
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	contents := []*genai.Content{{
		Role:  "user",
		Parts: []*genai.Part{{Text: buildPrompt(SanitizeForPrompt(label, models.MaxLabelLength), allowed)}},
	}}

	temp := float32(0.2)
	config := &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: int32(300),
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: "You are a JSON API. Respond with a single JSON object and nothing else."}},
		},
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"category": {
					Type:        genai.TypeString,
					Enum:        allowed,
					Description: "The best matching category from the list",
				},
				"confidence": {
					Type:        genai.TypeNumber,
					Description: "Confidence between 0 and 1",
				},
				"reasoning": {
					Type:        genai.TypeString,
					Description: "One short sentence",
				},
			},
			Required: []string{"category", "confidence"},
		},
	}

	resp, err := c.generator.GenerateContent(timeoutCtx, ModelName, contents, config)
	if err != nil {
		log.Error().Err(err).Msg("Gemini call failed")
		return nil, fmt.Errorf("gemini API call failed: %w", err)
	}
	if resp == nil {
		return nil, fmt.Errorf("no response from Gemini")
	}

	jsonText := extractJSON(resp.Text())
	if jsonText == "" {
		log.Warn().Msg("No JSON in Gemini response")
		return nil, fmt.Errorf("no JSON found in response")
	}

	var s Suggestion
	if err := json.Unmarshal([]byte(jsonText), &s); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	matched := false
	for _, name := range allowed {
		if strings.EqualFold(name, strings.TrimSpace(s.Category)) {
			s.Category = name
			matched = true
			break
		}
	}
	if !matched {
		log.Warn().Str("suggested", logger.SanitizeText(s.Category)).
			Msg("Suggested category not in list")
		return nil, fmt.Errorf("suggested category %q not in available categories", s.Category)
	}
	if s.Confidence < 0 || s.Confidence > 1 {
		return nil, fmt.Errorf("confidence out of range: %f", s.Confidence)
	}
	s.Reasoning = truncate(strings.Join(strings.Fields(s.Reasoning), " "), maxReasoningLength)

	log.Debug().Str("category", logger.SanitizeText(s.Category)).Float64("confidence", s.Confidence).Msg("Category suggested")
	return &s, nil
}

func buildPrompt(label string, categories []string) string {
	return fmt.Sprintf(`Categorize this expense: "%s"

Available categories:
- %s

Choose the single most appropriate category from the list. Use high confidence (0.8-1.0) only when the match is obvious.

Return JSON only:
{"category": "exact category name", "confidence": 0.0-1.0, "reasoning": "brief explanation"}`,
		label, strings.Join(categories, "\n- "))
}

// uniqueNames drops blanks and duplicate names, keeping the first spelling.
func uniqueNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = SanitizeForPrompt(n, models.MaxCategoryNameLength)
		key := strings.ToLower(n)
		if n == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, n)
	}
	return out
}

// extractJSON returns the outermost {...} of text, tolerating a preamble.
func extractJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return ""
	}
	return text[start : end+1]
}

// SanitizeForPrompt neutralises quotes and control characters, collapses
// whitespace and truncates to maxRunes.
func SanitizeForPrompt(input string, maxRunes int) string {
	input = strings.NewReplacer(`"`, `'`, "`", "'", "\x00", "").Replace(input)
	input = strings.Join(strings.Fields(input), " ")
	return truncate(input, maxRunes)
}

func truncate(s string, maxRunes int) string {
	r := []rune(s)
	if len(r) <= maxRunes {
		return s
	}
	return strings.TrimSpace(string(r[:maxRunes]))
}
