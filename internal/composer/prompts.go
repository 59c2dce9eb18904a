package composer

import (
	"fmt"
	"strings"

	"outreach_backend/internal/conversation"
	"outreach_backend/internal/tenant"
)

const formattingRules = `CRITICAL FORMATTING RULES:
- Output ONLY the email body text - no subject line, no "Subject:", no greeting like "Hi [Name]"
- Do NOT include any meeting links or URLs in your response
- Do NOT include any signature, sign-off, or closing (no "Best,", "Thanks,", "Regards,", etc.)
- Do NOT include your name at the end
- Just write the core message content`

// replySystemPrompt builds the deterministic system instruction for a reply:
// persona, company context, behavioral rules, output constraints, and the
// bounded conversation history.
func replySystemPrompt(agent tenant.Agent, client conversation.Client, history []conversation.HistoryEntry) string {
	var ctxBlock strings.Builder
	if len(history) > 0 {
		ctxBlock.WriteString("\n\nCONVERSATION HISTORY:\n")
		for _, entry := range history {
			sender := client.Name
			if entry.Role == "assistant" {
				sender = agent.Name
			}
			fmt.Fprintf(&ctxBlock, "\n%s: %s\n", sender, entry.Content)
		}
		ctxBlock.WriteString("\n---END OF CONVERSATION HISTORY---\n")
	}

	return fmt.Sprintf(`You are %s, a helpful, concise, and persistent but polite sales assistant.
Company context: %s
Rules: %s
Goal: Book a meeting using the link: %s

%s

Guidelines:
- Keep replies short and skimmable while addressing the lead's questions
- Reference the meeting but don't include the actual link
- Maintain a professional and friendly tone
- If the prospect booked already or clearly declines, thank them and do not push further
%s
IMPORTANT: You MUST read the conversation history above and respond appropriately to the prospect's latest message. Address their specific questions and concerns directly.`,
		agent.Name, agent.CompanyContext, agent.Rules, agent.MeetingURL,
		formattingRules, ctxBlock.String())
}

func replyUserPrompt(client conversation.Client) string {
	return fmt.Sprintf("The prospect %s just sent you a message. Based on the conversation history in your system prompt, craft an appropriate reply that addresses their latest message.", client.Name)
}

func initialSystemPrompt(agent tenant.Agent) string {
	return fmt.Sprintf(`You are %s, an energetic but respectful outbound SDR. Your single goal is to start a thread that gets a meeting booked.

%s
- Keep it 4-7 sentences max
- Write a personalized message that references booking a meeting but without the actual link`,
		agent.Name, formattingRules)
}

func initialUserPrompt(agent tenant.Agent, client conversation.Client) string {
	return fmt.Sprintf("Prospect details:\nName: %s\nEmail: %s\nCompany context: %s\nRules: %s\n\nWrite a short, engaging first outreach email. Reference the value of a meeting but don't include the actual link. Be specific and personalized.",
		client.Name, client.Email, agent.CompanyContext, agent.Rules)
}

const subjectSystemPrompt = "Write a concise, friendly sales email subject (max 6 words). No emojis."

func subjectUserPrompt(agent tenant.Agent) string {
	return fmt.Sprintf("Context: %s\nRules: %s", agent.CompanyContext, agent.Rules)
}
