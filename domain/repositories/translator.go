package repositories

import (
	"context"

	"github.com/onewhat/server/domain/entities"
)

// Translator abstracts machine translation providers. Language codes are in the
// translation vocabulary.
type Translator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (entities.TranslationResult, error)
	TranslateBatch(ctx context.Context, texts []string, sourceLang, targetLang string) ([]entities.TranslationResult, error)
}
