// Package composer builds bounded prompt context and obtains reply and
// outreach content from the AI completion boundary.
package composer

import (
	"context"
	"fmt"

	"outreach_backend/internal/conversation"
	"outreach_backend/internal/tenant"
	"outreach_backend/platform/ai/openai"
	"outreach_backend/platform/apperr"
	"outreach_backend/platform/logger"
)

// FallbackSubject is used for initial outreach when the subject completion
// fails or comes back empty.
const FallbackSubject = "Quick intro"

const (
	replyTemperature   = 0.6
	initialTemperature = 0.7
	subjectTemperature = 0.6
)

// Composer orchestrates the completion calls. The agent's model identifier
// wins over the process-wide default.
type Composer struct {
	ai  openai.Completer
	log *logger.Logger
}

// New creates a composer over the completion boundary.
func New(ai openai.Completer, log *logger.Logger) *Composer {
	return &Composer{ai: ai, log: log}
}

// ComposeReply generates a reply body for the client's latest inbound
// message given the bounded history window. A provider failure is returned
// as a typed error; callers treat it (and an empty body) as nothing to
// send, leaving the client's status untouched.
func (c *Composer) ComposeReply(ctx context.Context, agent tenant.Agent, client conversation.Client, history []conversation.HistoryEntry) (string, error) {
	messages := []openai.Message{
		{Role: "system", Content: replySystemPrompt(agent, client, history)},
		{Role: "user", Content: replyUserPrompt(client)},
	}

	body, err := c.ai.Complete(ctx, agent.Model, messages, replyTemperature)
	if err != nil {
		return "", apperr.Wrap(apperr.KindUnavailable, "composer.ComposeReply",
			fmt.Errorf("%w: %w", apperr.ErrAIProviderFailure, err))
	}
	return body, nil
}

// ComposeInitial generates a first-touch outreach body and, with a second
// independent completion, a short subject line. A failed subject completion
// degrades to the fallback subject; a failed body completion aborts.
func (c *Composer) ComposeInitial(ctx context.Context, agent tenant.Agent, client conversation.Client) (subject, body string, err error) {
	bodyMessages := []openai.Message{
		{Role: "system", Content: initialSystemPrompt(agent)},
		{Role: "user", Content: initialUserPrompt(agent, client)},
	}
	body, err = c.ai.Complete(ctx, agent.Model, bodyMessages, initialTemperature)
	if err != nil {
		return "", "", apperr.Wrap(apperr.KindUnavailable, "composer.ComposeInitial",
			fmt.Errorf("%w: %w", apperr.ErrAIProviderFailure, err))
	}

	subjectMessages := []openai.Message{
		{Role: "system", Content: subjectSystemPrompt},
		{Role: "user", Content: subjectUserPrompt(agent)},
	}
	subject, err = c.ai.Complete(ctx, agent.Model, subjectMessages, subjectTemperature)
	if err != nil || subject == "" {
		if err != nil {
			c.log.Warn("subject completion failed, using fallback", "error", err.Error())
		}
		subject = FallbackSubject
	}

	return subject, body, nil
}
