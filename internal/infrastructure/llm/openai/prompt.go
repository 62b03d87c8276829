package openai

import (
	openai "github.com/sashabaranov/go-openai"

	"github.com/harborline/catalog-assistant/internal/core/domain"
	"github.com/harborline/catalog-assistant/internal/core/ports"
)

const systemPersona = `You are a product assistant for a marine and fire safety equipment supplier, helping the sales team answer customer enquiries.

Rules:
- Answer ONLY from the product information provided in the context. If a specification or detail is not in the context, say you do not have that information. Never invent specifications, dimensions, certifications or prices.
- When you mention a product, write its product code in bold, for example **JB02HR**.
- Use short paragraphs and bullet lists for specifications. Keep answers focused on what the customer asked.
- If several products could fit, briefly compare the relevant ones and say what distinguishes them.
- If the context contains no matching products, say so plainly and suggest the customer contact the sales office.`

const contextPreamble = "Product information retrieved for this enquiry:\n\n"

// buildChatMessages assembles the completion conversation: persona, retrieved
// context, prior turns, then the current question.
func buildChatMessages(req ports.CompletionRequest) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, len(req.History)+3)
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPersona,
	})
	if req.Context != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: contextPreamble + req.Context,
		})
	}
	for _, turn := range req.History {
		role := openai.ChatMessageRoleUser
		if turn.Role == domain.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: turn.Content})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Query,
	})
	return msgs
}
