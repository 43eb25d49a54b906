// Package chatbot implements the festival recommendation assistant. A
// chat model is primed with a JSON snapshot of upcoming events and
// asked to tag its recommendations with a machine-readable block that
// is parsed out of the reply and resolved against the catalog.
package chatbot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/festago/festago/internal/event"
)

// ErrNoMessages is returned when a chat request carries no messages.
var ErrNoMessages = errors.New("at least one message is required")

// Prompt context limits.
const (
	maxContextEvents = 50
	maxDescription   = 200
)

// Recommendation block markers the model is instructed to emit.
const (
	recStart = "[RECOMMENDATIONS]"
	recEnd   = "[/RECOMMENDATIONS]"
)

// Message is one turn of the conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Reply is the assistant's answer with resolved event recommendations.
type Reply struct {
	Message         string         `json:"message"`
	Recommendations []*event.Event `json:"recommendations"`
}

// ChatClient completes a conversation against a chat model.
type ChatClient interface {
	Complete(ctx context.Context, system string, messages []Message) (string, error)
}

// Service answers recommendation chats using the event catalog.
type Service struct {
	events event.Repository
	client ChatClient
	logger *slog.Logger
}

// NewService creates a chatbot Service.
func NewService(events event.Repository, client ChatClient, logger *slog.Logger) *Service {
	return &Service{events: events, client: client, logger: logger}
}

// Chat sends the conversation to the model and resolves any
// recommendation block in its reply. A malformed block degrades to a
// plain text reply, never an error.
func (s *Service) Chat(ctx context.Context, messages []Message) (*Reply, error) {
	if len(messages) == 0 {
		return nil, ErrNoMessages
	}

	system, err := s.systemPrompt()
	if err != nil {
		return nil, err
	}

	answer, err := s.client.Complete(ctx, system, messages)
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}

	text, ids := parseRecommendations(answer)
	reply := &Reply{Message: text, Recommendations: []*event.Event{}}
	for _, id := range ids {
		e, err := s.events.GetByID(id)
		if err != nil {
			s.logger.Warn("recommended event not found", "event_id", id)
			continue
		}
		reply.Recommendations = append(reply.Recommendations, e)
	}
	return reply, nil
}

// systemPrompt renders the assistant instructions with a JSON snapshot
// of upcoming events: soonest first, capped, descriptions truncated.
func (s *Service) systemPrompt() (string, error) {
	events, err := s.events.List(event.ListFilter{})
	if err != nil {
		return "", fmt.Errorf("failed to load event context: %w", err)
	}
	sort.Slice(events, func(i, j int) bool {
		return events[i].StartDate.Before(events[j].StartDate)
	})
	if len(events) > maxContextEvents {
		events = events[:maxContextEvents]
	}

	type contextEvent struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Category    string `json:"category"`
		Location    string `json:"location"`
		StartDate   string `json:"start_date"`
		EndDate     string `json:"end_date"`
		Description string `json:"description,omitempty"`
	}
	list := make([]contextEvent, 0, len(events))
	for _, e := range events {
		desc := e.Description
		if runes := []rune(desc); len(runes) > maxDescription {
			desc = string(runes[:maxDescription])
		}
		list = append(list, contextEvent{
			ID:          e.ID,
			Name:        e.Name,
			Category:    e.Category,
			Location:    e.Location,
			StartDate:   e.StartDate.Format("2006-01-02"),
			EndDate:     e.EndDate.Format("2006-01-02"),
			Description: desc,
		})
	}
	data, err := json.Marshal(list)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(systemPromptTemplate, string(data)), nil
}

const systemPromptTemplate = `You are Festago, a friendly festival recommendation assistant.

## Role
- Recommend festivals, concerts, exhibitions and popup stores that match the user's preferences.
- Keep the tone warm and conversational; emoji are welcome in moderation.

## Event data (JSON)
Each entry carries id, name, category, location, start_date, end_date:
%s

## Response rules
1. Match events to the user's stated taste, area and dates.
2. Only recommend events present in the data above.
3. The ids in the JSON block must be exactly the events named in your text.
4. When you recommend events, end the reply with:
   [RECOMMENDATIONS]
   {"event_ids": [ids of the recommended events]}
   [/RECOMMENDATIONS]
5. Omit the block entirely for small talk or when nothing fits.
6. Categories: festival, concert, exhibition, popup.`

// parseRecommendations extracts the id list from a recommendation
// block and strips the block from the message. Malformed blocks leave
// the message untouched with no ids.
func parseRecommendations(message string) (string, []string) {
	start := strings.Index(message, recStart)
	if start < 0 {
		return strings.TrimSpace(message), nil
	}
	end := strings.Index(message, recEnd)
	if end < 0 || end < start {
		return strings.TrimSpace(message), nil
	}

	payload := message[start+len(recStart) : end]
	var block struct {
		EventIDs []any `json:"event_ids"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(payload)), &block); err != nil {
		return strings.TrimSpace(message), nil
	}

	ids := make([]string, 0, len(block.EventIDs))
	for _, raw := range block.EventIDs {
		switch v := raw.(type) {
		case string:
			ids = append(ids, v)
		case float64:
			// Models sometimes echo numeric-looking ids as numbers.
			ids = append(ids, strconv.FormatInt(int64(v), 10))
		}
	}
	return strings.TrimSpace(message[:start]), ids
}
