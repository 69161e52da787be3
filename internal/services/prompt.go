package services

import (
	"fmt"
	"strings"

	"github.com/yungbote/studypilot-backend/internal/logger"
	"github.com/yungbote/studypilot-backend/internal/types"
)

// DefaultCourse is used when the caller does not name a course.
const DefaultCourse = "your course"

// MaxDocumentContextLen caps how much of one extracted document is inserted
// into the system prompt.
const MaxDocumentContextLen = 4000

const tutorPromptTemplate = `You are an AI homework helper for students.
You are currently helping with %s.

DO NOT GIVE THE ANSWER. HELP THE STUDENT FIND THE ANSWER ON THEIR OWN. ASK QUESTIONS TO WALK THEM THROUGH.
Your role is to help students through their thought process. For direct questions looking for answers (example: What is x in 3x + 5 = 17?), do not give the straight answer.
Instead, ask questions to the student to walk them through solving the issue or thinking through the problem. If the student has trouble with a topic, you can give them rules or formulas or even sources to help them.
Basically, point the student in the right direction, give them feedback on their thought process, and help them get to the answer on their own.
You are able to confirm and affirm correct answers and thought processes.

Provide clear, educational explanations. Break down complex concepts step by step.
Be encouraging and supportive.

DO NOT GIVE THE ANSWER. HELP THE STUDENT FIND THE ANSWER ON THEIR OWN. ASK QUESTIONS TO WALK THEM THROUGH.
You have access to a Wolfram Alpha tool that can solve mathematical problems. When a student asks a math question (algebra, calculus, derivatives, integrals, equations, etc.), use the solve_math_problem function to get step-by-step solutions.
At the end of completing a math problem, or finding the answer, show and review each step with the student so they can see the work process.

IMPORTANT: When including mathematical notation:
- Use $...$ for inline math (e.g., $x^2 + y^2$)
- Use $$...$$ for display/block math equations (e.g., $$\frac{d}{dx}(x^n) = nx^{n-1}$$)
- DO NOT use \[ \] or \( \) notation
- Always use double backslashes for LaTeX commands in markdown (e.g., \frac, \cdot, \sum)
- Format all mathematical expressions using proper LaTeX syntax within $ or $$ delimiters

Example of proper formatting:
The derivative of $x^2$ is $2x$.

The product rule states:
$$\frac{d}{dx}[u(x) \cdot v(x)] = u'(x) \cdot v(x) + u(x) \cdot v'(x)$$
`

const streamPromptTemplate = `You are an AI homework helper for students.
You are currently helping with %s.
Provide clear, educational explanations. Break down complex concepts step by step.
Be encouraging and supportive.`

// DocumentContext is one uploaded document's extracted text, ready for
// prompt insertion.
type DocumentContext struct {
	Name string
	Text string
}

// PromptService assembles the system prompt for a turn. Augmentation order
// is fixed: mistakes, then the repeat-question note, then document context
// last, so prompt-length truncation eats reference material before it eats
// personalization.
type PromptService interface {
	TutorPrompt(course string, mistakes []*types.Mistake, similar *types.SimilarityMatch, documents []DocumentContext) string
	StreamPrompt(course string) string
}

type promptService struct {
	log *logger.Logger
}

func NewPromptService(baseLog *logger.Logger) PromptService {
	return &promptService{log: baseLog.With("service", "PromptService")}
}

func (ps *promptService) TutorPrompt(course string, mistakes []*types.Mistake, similar *types.SimilarityMatch, documents []DocumentContext) string {
	if strings.TrimSpace(course) == "" {
		course = DefaultCourse
	}

	var b strings.Builder
	fmt.Fprintf(&b, tutorPromptTemplate, course)

	if digest := mistakeDigest(mistakes); digest != "" {
		b.WriteString("\n")
		b.WriteString(digest)
	}
	if similar != nil {
		b.WriteString("\n")
		b.WriteString(similarityNote(similar))
	}
	if docs := documentSection(documents); docs != "" {
		b.WriteString("\n")
		b.WriteString(docs)
	}
	return b.String()
}

func (ps *promptService) StreamPrompt(course string) string {
	if strings.TrimSpace(course) == "" {
		course = DefaultCourse
	}
	return fmt.Sprintf(streamPromptTemplate, course)
}

// mistakeDigest renders up to MistakeDigestLimit recorded mistakes as a
// condensed bulleted list.
func mistakeDigest(mistakes []*types.Mistake) string {
	if len(mistakes) == 0 {
		return ""
	}
	if len(mistakes) > MistakeDigestLimit {
		mistakes = mistakes[:MistakeDigestLimit]
	}

	var b strings.Builder
	b.WriteString("PAST MISTAKES (the student previously got these wrong; watch for the same misconceptions and reinforce the corrections):\n")
	for _, m := range mistakes {
		b.WriteString("- ")
		if m.Topic != "" {
			b.WriteString("[" + m.Topic + "] ")
		}
		b.WriteString(condense(m.Question, 200))
		if m.Correction != "" {
			b.WriteString(" (correction: " + condense(m.Correction, 200) + ")")
		}
		b.WriteString("\n")
	}
	return b.String()
}

func similarityNote(match *types.SimilarityMatch) string {
	return fmt.Sprintf("NOTE: The student has asked this or a very similar question before: \"%s\". %s Connect your guidance back to that earlier attempt and check whether the concept stuck.\n",
		condense(match.Question, 200), match.Note)
}

// documentSection concatenates extracted document text in caller-given order
// under explicit per-document headers.
func documentSection(documents []DocumentContext) string {
	var b strings.Builder
	for _, doc := range documents {
		text := strings.TrimSpace(doc.Text)
		if text == "" {
			continue
		}
		if len(text) > MaxDocumentContextLen {
			text = types.TruncateBytes(text, MaxDocumentContextLen) + "\n[truncated]"
		}
		if b.Len() == 0 {
			b.WriteString("REFERENCE MATERIAL from files the student uploaded:\n")
		}
		fmt.Fprintf(&b, "\n--- Document: %s ---\n%s\n", doc.Name, text)
	}
	return b.String()
}

// condense flattens whitespace and caps length for prompt bullets.
func condense(text string, maxLen int) string {
	text = strings.Join(strings.Fields(text), " ")
	if len(text) > maxLen {
		text = types.TruncateBytes(text, maxLen) + "..."
	}
	return text
}
