// Package jobdesc generates the job posting text offered for confirmation.
package jobdesc

import (
	"context"
	"fmt"
	"strings"

	"github.com/xaenox/jobpost-bot/internal/knowledge"
	"github.com/xaenox/jobpost-bot/internal/llm"
	"github.com/xaenox/jobpost-bot/internal/models"
	"go.uber.org/zap"
)

// MaxLength caps generated descriptions, in characters.
const MaxLength = 2500

// LLMGenerator writes job descriptions with a language model.
type LLMGenerator struct {
	completer llm.Completer
	company   knowledge.Company
	logger    *zap.Logger
}

func NewLLMGenerator(completer llm.Completer, company knowledge.Company, logger *zap.Logger) *LLMGenerator {
	return &LLMGenerator{completer: completer, company: company, logger: logger}
}

func (g *LLMGenerator) buildPrompt(e models.Entities) string {
	return fmt.Sprintf(`You are a professional job description writer. Create a LinkedIn job post based on the provided information.

COMPANY CONTEXT:
%s
Job Template: %s

JOB REQUIREMENTS:
- Title: %s
- Experience: %s
- Skills: %s
- Job Type: %s
- Location: %s

INSTRUCTIONS:
1. Use ONLY the information provided above
2. Do NOT add fictional company details, benefits, or requirements not mentioned
3. Keep the tone professional and engaging
4. Keep the description under %d characters
5. Include relevant hashtags for LinkedIn
6. Structure the post with an engaging headline, a generic company intro, the role, required skills and experience, job type and location, and a call to action
`, g.company.Context(), g.company.JobTemplate,
		value(e, models.AttrJobTitle), value(e, models.AttrExperience), value(e, models.AttrSkills),
		value(e, models.AttrJobType), value(e, models.AttrLocation), MaxLength)
}

// Generate returns a cleaned description. Errors come from the model call;
// callers decide whether to fall back.
func (g *LLMGenerator) Generate(ctx context.Context, e models.Entities) (string, error) {
	g.logger.Info("Requesting job description", zap.String("model", g.completer.Model()))

	text, err := g.completer.Complete(ctx, g.buildPrompt(e))
	if err != nil {
		return "", fmt.Errorf("generate job description: %w", err)
	}
	return Clean(text), nil
}

// Clean strips Markdown bold markers and enforces MaxLength.
func Clean(text string) string {
	text = strings.TrimSpace(strings.ReplaceAll(text, "**", ""))
	runes := []rune(text)
	if len(runes) > MaxLength {
		return string(runes[:MaxLength]) + "..."
	}
	return text
}

// Fallback is the canned posting used when generation fails.
func Fallback(e models.Entities) string {
	title := value(e, models.AttrJobTitle)
	return fmt.Sprintf(`🚀 We're Hiring!

📌 %s
📍 Location: %s
⏰ Type: %s
🧠 Experience: %s
🛠 Skills: %s

We're looking for a talented %s to join our team. If you have the required experience and skills, we'd love to hear from you!

#Hiring #JobOpening #Careers`,
		title, value(e, models.AttrLocation), value(e, models.AttrJobType),
		value(e, models.AttrExperience), value(e, models.AttrSkills), title)
}

func value(e models.Entities, a models.Attribute) string {
	if v, ok := e.Get(a); ok {
		return v
	}
	return "N/A"
}
