package aitime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/hrygo/clockface/plugin/ai"
	"github.com/hrygo/clockface/plugin/ai/timeout"
)

var codeFencePattern = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)\\s*```")

// LLMResolver asks a language model to convert a phrase into a time of day.
type LLMResolver struct {
	llm ai.LLMService
}

// NewLLMResolver creates a resolver backed by llm.
func NewLLMResolver(llm ai.LLMService) *LLMResolver {
	return &LLMResolver{llm: llm}
}

// Resolve implements Resolver.
func (r *LLMResolver) Resolve(ctx context.Context, phrase string) (*Candidate, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout.LLMRequestTimeout)
	defer cancel()

	messages := []ai.Message{
		ai.SystemPrompt(timeSystemPromptStrict),
		ai.UserMessage(buildTimePrompt(phrase)),
	}

	start := time.Now()
	content, err := r.llm.ChatJSON(ctx, messages, "time_of_day", timeOfDayJSONSchema)
	latency := time.Since(start)
	if err != nil {
		slog.Error("LLM time resolution request failed",
			"error", err,
			"latency_ms", latency.Milliseconds())
		return nil, fmt.Errorf("LLM request failed: %w", err)
	}

	c, err := parseTimeResponse(content)
	if err != nil {
		slog.Warn("Failed to parse LLM time response",
			"content", truncateForLog(content, timeout.MaxTruncateLength),
			"error", err)
		return nil, fmt.Errorf("parse response failed: %w", err)
	}

	slog.Debug("LLM time resolution completed",
		"phrase", truncateForLog(phrase, timeout.MaxTruncateLength),
		"found", c != nil,
		"latency_ms", latency.Milliseconds())

	return c, nil
}

func buildTimePrompt(phrase string) string {
	return fmt.Sprintf("Time description: %q", phrase)
}

// parseTimeResponse accepts the strict schema object, a bare null, or either
// wrapped in a markdown code block.
func parseTimeResponse(content string) (*Candidate, error) {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```") {
		if matches := codeFencePattern.FindStringSubmatch(content); len(matches) > 1 {
			content = matches[1]
		}
	}

	if content == "" || content == "null" {
		return nil, nil
	}

	var raw struct {
		TimeFound *bool `json:"time_found"`
		Hours     *int  `json:"hours"`
		Minutes   *int  `json:"minutes"`
		Seconds   *int  `json:"seconds"`
	}
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("JSON unmarshal failed: %w", err)
	}

	if raw.TimeFound != nil && !*raw.TimeFound {
		return nil, nil
	}
	if raw.Hours == nil || raw.Minutes == nil || raw.Seconds == nil {
		return nil, fmt.Errorf("response missing hours, minutes or seconds")
	}

	return &Candidate{Hours: *raw.Hours, Minutes: *raw.Minutes, Seconds: *raw.Seconds}, nil
}

// truncateForLog truncates a string to maxLen runes for logging purposes.
func truncateForLog(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}

// timeSystemPromptStrict carries the conversion rules; the schema enforces the shape.
const timeSystemPromptStrict = `Convert the user's time description into a 24-hour time of day.
Set time_found to false and all numbers to 0 if no specific time is mentioned.
Examples:
"quarter past ten" -> {"time_found": true, "hours": 10, "minutes": 15, "seconds": 0}
"midnight" -> {"time_found": true, "hours": 0, "minutes": 0, "seconds": 0}
"half past seven in the evening" -> {"time_found": true, "hours": 19, "minutes": 30, "seconds": 0}
"what a lovely day" -> {"time_found": false, "hours": 0, "minutes": 0, "seconds": 0}`

var (
	schemaMin       = 0
	schemaMaxHour   = 23
	schemaMaxMinute = 59
)

// timeOfDayJSONSchema defines the strict output schema for time resolution.
var timeOfDayJSONSchema = ai.Closed(
	map[string]*ai.JSONSchema{
		"time_found": {
			Type:        "boolean",
			Description: "Whether the description names a specific time",
		},
		"hours": {
			Type:        "integer",
			Description: "0-23",
			Minimum:     &schemaMin,
			Maximum:     &schemaMaxHour,
		},
		"minutes": {
			Type:        "integer",
			Description: "0-59",
			Minimum:     &schemaMin,
			Maximum:     &schemaMaxMinute,
		},
		"seconds": {
			Type:        "integer",
			Description: "0-59",
			Minimum:     &schemaMin,
			Maximum:     &schemaMaxMinute,
		},
	},
	"time_found", "hours", "minutes", "seconds",
)

var _ Resolver = (*LLMResolver)(nil)
