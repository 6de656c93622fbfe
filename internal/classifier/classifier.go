package classifier

import (
	"context"
	"strings"

	"github.com/xaenox/jobpost-bot/internal/models"
)

// Classifier detects hiring intent and extracts job attributes from the
// full conversation history. Implementations always return a well-formed
// Classification; a non-nil error means the result was degraded.
type Classifier interface {
	Classify(ctx context.Context, history string) (models.Classification, error)
}

// KeywordClassifier is the offline fallback used when the language model
// is unavailable. It never extracts attributes.
type KeywordClassifier struct {
	keywords []string
}

func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{
		keywords: []string{"hiring", "hire", "looking for", "need", "recruiting", "job opening"},
	}
}

func (c *KeywordClassifier) Classify(_ context.Context, history string) (models.Classification, error) {
	content := strings.ToLower(history)
	for _, keyword := range c.keywords {
		if strings.Contains(content, keyword) {
			return models.Classification{Intent: models.IntentHiringRequest}, nil
		}
	}
	return models.NotHiring(), nil
}
