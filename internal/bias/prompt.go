// Package bias turns article content into a normalized left/right
// leaning estimate using a chat-completion model.
package bias

import (
	"fmt"

	"github.com/pep299/article-bias-analyzer/internal/model"
	"github.com/pep299/article-bias-analyzer/internal/openai"
)

// SystemInstruction fixes the reply format the parser relies on
const SystemInstruction = "You are a political bias rating assistant. " +
	"Your job is to analyze text and determine if it leans left or right politically. " +
	"You must always output percentages that add up to 100%, in this exact format: " +
	"- Left leaning: X% - Right leaning: Y% " +
	"Do not explain or add any extra text. Just return the percentages."

// Prompt is the system and user message pair for one analysis
type Prompt struct {
	System string
	User   string
}

// BuildPrompt creates the prompt for article
func BuildPrompt(article model.Article) Prompt {
	return Prompt{
		System: SystemInstruction,
		User: fmt.Sprintf("Analyze the following article and provide the left vs. right leaning percentages: %s\n\n%s",
			article.Title, article.Text),
	}
}

// Messages returns the prompt as chat messages
func (p Prompt) Messages() []openai.Message {
	return []openai.Message{
		{Role: "system", Content: p.System},
		{Role: "user", Content: p.User},
	}
}
