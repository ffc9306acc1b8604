package generator

import (
	"fmt"
	"strings"

	"banana-slides/pkg/models"
)

// languageInstruction maps a language code to a prompt clause.
func languageInstruction(language string) string {
	switch language {
	case "zh":
		return "Write all slide text in Simplified Chinese."
	case "ja":
		return "Write all slide text in Japanese."
	case "en":
		return "Write all slide text in English."
	default:
		return "Write all slide text in the same language as the request."
	}
}

// buildOutlinePrompt constructs the prompt for outline generation.
func buildOutlinePrompt(p *models.Project) string {
	var sb strings.Builder

	sb.WriteString("# Presentation Outline\n\n")
	sb.WriteString("Plan a slide deck for the following request.\n\n")
	sb.WriteString(fmt.Sprintf("**Request**: %s\n\n", p.Prompt))

	if p.RequestedPages > 0 {
		sb.WriteString(fmt.Sprintf("Aim for roughly %d slides. ", p.RequestedPages))
		sb.WriteString("Treat this as a hint: if the topic naturally breaks into a different number of sections, use that instead.\n\n")
	}

	sb.WriteString(languageInstruction(p.Language))
	sb.WriteString("\n\n")

	sb.WriteString("## Response Format\n\n")
	sb.WriteString("Respond with a JSON array only, no prose. Each element:\n")
	sb.WriteString("{\"title\": \"slide heading\", \"intent\": \"one sentence describing what the slide must convey\"}\n")

	return sb.String()
}

// buildContentPrompt constructs the prompt for one slide's text body.
func buildContentPrompt(p *models.Project, spec models.SlideSpec, reference, feedback string) string {
	var sb strings.Builder

	sb.WriteString("# Slide Content\n\n")
	sb.WriteString(fmt.Sprintf("You are writing slide %d of a deck about: %s\n\n", spec.Index+1, p.Prompt))
	sb.WriteString(fmt.Sprintf("**Slide title**: %s\n", spec.Title))
	sb.WriteString(fmt.Sprintf("**Slide intent**: %s\n\n", spec.Intent))

	if reference != "" {
		sb.WriteString("## Reference Material\n\n")
		sb.WriteString(reference)
		sb.WriteString("\n\n")
	}

	if feedback != "" {
		sb.WriteString("## Reviewer Feedback on the Previous Draft\n\n")
		sb.WriteString(feedback)
		sb.WriteString("\n\nAddress every point of feedback in the new draft.\n\n")
	}

	sb.WriteString(languageInstruction(p.Language))
	sb.WriteString("\n\n")
	sb.WriteString("Write the slide body as concise markdown: a few bullet points or short paragraphs, ")
	sb.WriteString("no heading (the title is rendered separately), no speaker notes.\n")

	return sb.String()
}

// buildImagePrompt constructs the prompt for one slide's illustration.
func buildImagePrompt(p *models.Project, spec models.SlideSpec, content, feedback string, hasTemplate bool) string {
	var sb strings.Builder

	sb.WriteString("Create a presentation slide illustration.\n\n")
	sb.WriteString(fmt.Sprintf("Slide title: %s\n", spec.Title))
	sb.WriteString(fmt.Sprintf("Slide intent: %s\n\n", spec.Intent))

	if content != "" {
		sb.WriteString("Slide text:\n")
		sb.WriteString(content)
		sb.WriteString("\n\n")
	}

	if hasTemplate {
		sb.WriteString("Match the visual style of the attached reference image: its palette, typography, and layout language.\n")
	} else {
		sb.WriteString("Use a clean, modern presentation style with generous whitespace.\n")
	}

	if feedback != "" {
		sb.WriteString("\nReviewer feedback on the previous image:\n")
		sb.WriteString(feedback)
		sb.WriteString("\n")
	}

	return sb.String()
}
