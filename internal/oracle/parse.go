package oracle

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/skywalker0803r/AIInterviewer-backend/internal/interview"
)

// extractJSON strips markdown code fences the model tends to wrap JSON in.
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	return strings.TrimSpace(strings.Trim(raw, "`"))
}

func parseQuestionPlan(raw string) ([]string, error) {
	var payload struct {
		Questions []struct {
			ID       int    `json:"id"`
			Question string `json:"question"`
		} `json:"questions"`
	}
	if err := json.Unmarshal([]byte(extractJSON(raw)), &payload); err != nil {
		return nil, fmt.Errorf("parse question plan: %w", err)
	}

	questions := make([]string, 0, len(payload.Questions))
	for _, q := range payload.Questions {
		text := strings.TrimSpace(q.Question)
		if text != "" {
			questions = append(questions, text)
		}
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("question plan is empty")
	}
	return questions, nil
}

// parseEvaluation accepts either the structured form
// {"dim": {"score": 4, "feedback": "..."}} or the flat form {"dim": 4}
// the model sometimes produces. Every requested dimension ends up in the
// result, zero-valued when the model skipped it.
func parseEvaluation(raw string, dims []string) (map[string]interview.DimensionScore, error) {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal([]byte(extractJSON(raw)), &payload); err != nil {
		return nil, fmt.Errorf("parse evaluation: %w", err)
	}

	out := make(map[string]interview.DimensionScore, len(dims))
	matched := 0
	for _, dim := range dims {
		msg, ok := payload[dim]
		if !ok {
			out[dim] = interview.DimensionScore{}
			continue
		}

		var structured struct {
			Score    json.RawMessage `json:"score"`
			Feedback string          `json:"feedback"`
		}
		if err := json.Unmarshal(msg, &structured); err == nil && structured.Score != nil {
			out[dim] = interview.DimensionScore{
				Score:    clampScore(coerceFloat(structured.Score)),
				Feedback: strings.TrimSpace(structured.Feedback),
			}
			matched++
			continue
		}

		out[dim] = interview.DimensionScore{Score: clampScore(coerceFloat(msg))}
		matched++
	}

	if matched == 0 {
		return nil, fmt.Errorf("evaluation matched no requested dimensions")
	}
	return out, nil
}

func coerceFloat(msg json.RawMessage) float64 {
	var f float64
	if err := json.Unmarshal(msg, &f); err == nil {
		return f
	}
	var s string
	if err := json.Unmarshal(msg, &s); err == nil {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return parsed
		}
	}
	return 0
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 5 {
		return 5
	}
	return score
}
