package classifier

import (
	"context"
	"fmt"

	"github.com/xaenox/jobpost-bot/internal/knowledge"
	"github.com/xaenox/jobpost-bot/internal/llm"
	"github.com/xaenox/jobpost-bot/internal/models"
	"go.uber.org/zap"
)

const instruction = `You are a precise hiring intent detection agent. Your task is to:

1. DETECT INTENT: Determine if the message is a hiring request
2. EXTRACT ENTITIES: Only extract the following entities if they are explicitly mentioned:
   - job_title: The specific job role/title
   - experience: Required experience level or years
   - skills: Required technical skills or technologies
   - job_type: Employment type (full-time, part-time, contract, etc.)
   - location: Work location (remote, specific city, etc.)

3. VALIDATION RULES:
   - Only extract entities that are CLEARLY stated in the message
   - If an entity is not explicitly mentioned, set it to null
   - Later messages may correct earlier ones; the latest statement wins
   - Do NOT infer, guess or add information not present in the input

4. RESPONSE FORMAT: Return ONLY valid JSON with this exact structure:
{
    "intent": "hiring_request" or "not_hiring",
    "entities": {
        "job_title": "exact title mentioned" or null,
        "experience": "exact experience mentioned" or null,
        "skills": "exact skills mentioned" or null,
        "job_type": "exact job type mentioned" or null,
        "location": "exact location mentioned" or null
    }
}`

// LLMClassifier asks a language model to classify the conversation and
// validates what comes back.
type LLMClassifier struct {
	completer llm.Completer
	fallback  Classifier
	company   knowledge.Company
	logger    *zap.Logger
}

func NewLLMClassifier(completer llm.Completer, company knowledge.Company, logger *zap.Logger) *LLMClassifier {
	return &LLMClassifier{
		completer: completer,
		fallback:  NewKeywordClassifier(),
		company:   company,
		logger:    logger,
	}
}

func (c *LLMClassifier) buildPrompt(history string) string {
	return fmt.Sprintf(`INSTRUCTION:
%s

COMPANY CONTEXT:
%s

USER MESSAGE:
%s

RESPONSE (JSON ONLY):
`, instruction, c.company.Context(), history)
}

// Classify returns quota_exceeded for rate-limit failures, the keyword
// fallback for other provider failures, and not_hiring for unusable output.
func (c *LLMClassifier) Classify(ctx context.Context, history string) (models.Classification, error) {
	response, err := c.completer.Complete(ctx, c.buildPrompt(history))
	if err != nil {
		if llm.IsRateLimit(err) {
			c.logger.Error("LLM quota exceeded", zap.Error(err), zap.String("model", c.completer.Model()))
			return models.Classification{Intent: models.IntentQuotaExceeded}, err
		}
		c.logger.Error("Failed to get LLM response, using keyword fallback",
			zap.Error(err),
			zap.String("kind", llm.KindOf(err).String()),
			zap.String("model", c.completer.Model()))
		result, _ := c.fallback.Classify(ctx, history)
		return result, err
	}

	// Callers log format errors with the raw payload.
	result, err := ParseResponse(response)
	if err != nil {
		return result, err
	}

	if result.Intent == models.IntentHiringRequest {
		result.Entities = CleanEntities(result.Entities)
	}
	return result, nil
}
