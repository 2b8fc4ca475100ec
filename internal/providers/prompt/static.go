package prompt

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/khshakilahamed/ads-generator/internal/domain"
)

// StaticSynthesizer produces a deterministic prompt plan from the user's
// description. It serves environments without provider credentials and keeps
// the rest of the pipeline exercisable end to end.
type StaticSynthesizer struct{}

func NewStaticSynthesizer() *StaticSynthesizer {
	return &StaticSynthesizer{}
}

func (s *StaticSynthesizer) Synthesize(ctx context.Context, req Request) (*domain.PromptPlan, error) {
	subject := strings.TrimSpace(req.Description)
	if subject == "" {
		subject = "the product"
	}
	title := cases.Title(language.Und).String(subject)
	plan := &domain.PromptPlan{
		ImageEditPrompt: fmt.Sprintf(
			"%s centered on a clean, colorful studio background, surrounded by dynamic splashes that complement it, sharp and in focus.",
			title),
		VideoPrompt: fmt.Sprintf(
			"Slow cinematic push-in on %s while splash elements swirl around it, soft studio lighting, 4 second loop.",
			subject),
	}
	return plan, nil
}

var _ Synthesizer = (*StaticSynthesizer)(nil)
