package intent

import (
	"strings"

	"factcheck_gateway/internal/model"
)

// Classifier определяет намерение сообщения по ключевым словам.
// Совпадение ищется как подстрока, а не как целое слово.
type Classifier interface {
	Classify(text string) model.Intent
}

type rule struct {
	intent   model.Intent
	keywords []string
}

type keywordClassifier struct {
	rules []rule
}

// NewKeywordClassifier returns the classifier with the fixed rule order sos, fact-check, question.
func NewKeywordClassifier() Classifier {
	return &keywordClassifier{
		rules: []rule{
			{
				intent:   model.IntentSOS,
				keywords: []string{"help", "emergency", "sos", "danger", "harassment", "abuse", "violence", "hurt"},
			},
			{
				intent:   model.IntentFactCheck,
				keywords: []string{"verify", "check", "true", "false", "fact", "claim", "news", "real", "fake"},
			},
			{
				intent:   model.IntentQuestion,
				keywords: []string{"how", "what", "why", "when", "where", "explain", "tell me"},
			},
		},
	}
}

func (c *keywordClassifier) Classify(text string) model.Intent {
	lower := strings.ToLower(text)

	for _, r := range c.rules {
		for _, keyword := range r.keywords {
			if strings.Contains(lower, keyword) {
				return r.intent
			}
		}
	}

	return model.IntentUnknown
}
