package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/remoproj/remo/provider"
)

// Tool names offered to the model.
const (
	toolFetchPage  = "fetch_page"
	toolFinishTask = "finish_task"
)

const plannerSystemPrompt = `You are a web agent planner. Your goal is to help a user achieve a task on a webpage.
Based on the user's goal and the current content of the page, decide the single next action to take.

Your available actions are:
1. fetch_page(url): navigate to a page and observe its content.
2. finish_task(reason): call this ONLY when the user's goal has been fully achieved.

If the goal is met, call finish_task. Otherwise call fetch_page with the next URL to visit.`

// plannerTools is the closed tool set the model may choose from.
var plannerTools = []provider.ToolDef{
	{
		Name:        toolFetchPage,
		Description: "Navigate to a URL and return a simplified version of the page's content.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"url": map[string]any{"type": "string", "description": "URL to navigate to"},
			},
			"required": []string{"url"},
		},
	},
	{
		Name:        toolFinishTask,
		Description: "Signal that the user's goal has been fully achieved and the autonomous process should end.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"reason": map[string]any{"type": "string", "description": "Brief explanation of why the task is complete"},
			},
			"required": []string{"reason"},
		},
	},
}

// Planner decides the next action for a session by delegating to an AI
// provider. From the loop's perspective it is a pure decision function.
type Planner struct {
	Provider provider.Provider
}

// Decide produces exactly one action for the session's current state.
func (p *Planner) Decide(ctx context.Context, s *Session) (Action, error) {
	resp, err := p.Provider.Chat(ctx, p.buildMessages(s), plannerTools)
	if err != nil {
		return Action{}, fmt.Errorf("planner decision: %w", err)
	}

	// A plain text response with no tool call is the model's final answer.
	if len(resp.ToolCalls) == 0 {
		return Finish(resp.Content), nil
	}

	tc := resp.ToolCalls[0]
	switch tc.Name {
	case toolFetchPage:
		url, _ := tc.Arguments["url"].(string)
		if url == "" {
			return Action{}, fmt.Errorf("planner decision: %s called without a url", toolFetchPage)
		}
		return Fetch(url), nil
	case toolFinishTask:
		reason, _ := tc.Arguments["reason"].(string)
		if reason == "" {
			reason = "goal achieved"
		}
		return Finish(reason), nil
	default:
		return Action{}, fmt.Errorf("planner decision: unknown tool %q", tc.Name)
	}
}

// buildMessages constructs the conversation context for one decision.
func (p *Planner) buildMessages(s *Session) []provider.Message {
	var user strings.Builder
	user.WriteString("Goal: ")
	user.WriteString(s.Goal)
	if s.StartURL != "" {
		user.WriteString("\nStart URL: ")
		user.WriteString(s.StartURL)
	}
	if s.Observation.Empty() {
		user.WriteString("\n\nNo page has been observed yet. Start the task.")
	} else {
		user.WriteString("\n\nCurrent page observation:\n")
		user.WriteString(s.Observation.Summary())
	}

	return []provider.Message{
		{Role: provider.RoleSystem, Content: plannerSystemPrompt},
		{Role: provider.RoleUser, Content: user.String()},
	}
}
