package oracle

import (
	"fmt"
	"strings"

	"github.com/skywalker0803r/AIInterviewer-backend/internal/interview"
)

func buildQuestionPlanPrompt(jobTitle, jobDescription string, dims []string, minQ, maxQ int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a professional interviewer. Based on the position %q and the following job description:\n\n%s\n\n", jobTitle, jobDescription)
	fmt.Fprintf(&b, "Design %d to %d interview questions that probe the candidate on: %s.\n", minQ, maxQ, strings.Join(dims, ", "))
	b.WriteString("Return the question list as JSON, each question with 'id' and 'question' fields, for example:\n")
	b.WriteString(`{"questions": [{"id": 1, "question": "Please introduce yourself."}, {"id": 2, "question": "..."}]}`)
	return b.String()
}

func buildEvaluationPrompt(jobTitle, jobDescription string, dims []string, history []interview.Turn) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a professional interviewer evaluating a candidate for the position %q.\n", jobTitle)
	if strings.TrimSpace(jobDescription) != "" {
		fmt.Fprintf(&b, "Job description:\n%s\n", jobDescription)
	}
	b.WriteString("\nInterview transcript:\n")
	b.WriteString(formatTranscript(history))
	fmt.Fprintf(&b, "\nScore the candidate from 1 to 5 (1 lowest, 5 highest) on each of these %d dimensions: %s.\n", len(dims), strings.Join(dims, ", "))
	b.WriteString("An unanswered question should lower the relevant scores. Return the result as JSON mapping each dimension to an object with 'score' and 'feedback' fields, for example:\n")
	b.WriteString(`{"communication": {"score": 4, "feedback": "clear and structured answers"}}`)
	return b.String()
}

func formatTranscript(history []interview.Turn) string {
	if len(history) == 0 {
		return "(no answers were given)\n"
	}
	var b strings.Builder
	for i, turn := range history {
		fmt.Fprintf(&b, "Q%d: %s\n", i+1, turn.Question)
		answer := strings.TrimSpace(turn.AnswerText)
		if answer == "" {
			answer = "(no answer)"
		}
		fmt.Fprintf(&b, "A%d: %s\n", i+1, answer)
	}
	return b.String()
}

// seedQuestions is the fallback interview used when the model cannot
// produce a usable question plan.
func seedQuestions(jobTitle string) []string {
	return []string{
		fmt.Sprintf("Welcome, and thank you for joining this first-round interview for the %s position. Please introduce yourself, highlight the experience you consider most relevant to this role, and tell us what drew you to it.", jobTitle),
		"What do you consider your greatest strengths and weaknesses, and how do they show up in your work?",
		"Tell me about a difficult challenge you faced in a past role and how you overcame it.",
		"What do you know about our company or this position, and why did you choose to apply here?",
		"Where do you see your career heading over the next few years?",
	}
}
