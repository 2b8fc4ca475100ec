package prompt

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/khshakilahamed/ads-generator/internal/domain"
	"github.com/khshakilahamed/ads-generator/internal/providers"
)

// Request carries provider-agnostic inputs for prompt synthesis: the hosted
// product image, an optional avatar reference, and the user's description.
type Request struct {
	ImageURL    string
	AvatarURL   string
	Description string
	Size        string
}

// Synthesizer derives the prompt pair used by the image and video stages.
type Synthesizer interface {
	Synthesize(ctx context.Context, req Request) (*domain.PromptPlan, error)
}

const productInstruction = `Create a vibrant product showcase image featuring the uploaded image in the center,
surrounded by dynamic splashes of liquid or relevant materials that complement the product.
Use a clean, colorful background to make the product stand out.
Include subtle elements related to the product's flavor, ingredients, or theme
floating around to add context and visual interest.
Ensure the product is sharp and in focus, conveying motion and energy.`

const avatarInstruction = `Create a vibrant product showcase image featuring the uploaded product image being held
naturally by the uploaded avatar image. Position the product clearly in the avatar's hands,
making it the focal point of the scene. Surround the product with dynamic splashes of liquid
or relevant materials that complement the product. Use a clean, colorful background to make
the product stand out. Ensure both the avatar and product are sharp, well-lit, and in focus,
while motion and energy are conveyed through the splash effects.`

const jsonContract = `Then provide a JSON object with two fields:
{"textToImage": "A refined text prompt to generate the image.", "imageToVideo": "A detailed text prompt to create a short video animation from that image."}
Output only valid JSON, no explanations, no markdown, no extra text.`

func buildInstruction(req Request) string {
	sb := &strings.Builder{}
	if req.AvatarURL != "" {
		sb.WriteString(avatarInstruction)
	} else {
		sb.WriteString(productInstruction)
	}
	if desc := strings.TrimSpace(req.Description); desc != "" {
		sb.WriteString("\nProduct description: ")
		sb.WriteString(desc)
	}
	if size := strings.TrimSpace(req.Size); size != "" {
		sb.WriteString("\nTarget image size: ")
		sb.WriteString(size)
	}
	sb.WriteString("\n")
	sb.WriteString(jsonContract)
	return sb.String()
}

// parsePlan extracts the prompt pair from free-form model output. A missing
// or malformed JSON payload is a permanent failure; retrying a parse never
// helps.
func parsePlan(raw string) (*domain.PromptPlan, error) {
	fragment := extractJSONFragment(raw)
	if fragment == "" {
		return nil, providers.Permanent(errors.New("prompt: empty model output"))
	}
	var plan domain.PromptPlan
	if err := json.Unmarshal([]byte(fragment), &plan); err != nil {
		return nil, providers.Permanent(err)
	}
	plan.ImageEditPrompt = strings.TrimSpace(plan.ImageEditPrompt)
	plan.VideoPrompt = strings.TrimSpace(plan.VideoPrompt)
	if plan.IsZero() {
		return nil, providers.Permanent(errors.New("prompt: model output missing textToImage/imageToVideo"))
	}
	return &plan, nil
}

func extractJSONFragment(raw string) string {
	text := strings.TrimSpace(raw)
	if text == "" {
		return ""
	}
	text = trimCodeFence(text)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end >= start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}

func trimCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```JSON")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}
