package teams

import (
	"fmt"
	"strings"

	"github.com/codeGROOVE-dev/review-reminder/pkg/reminder"
	"github.com/codeGROOVE-dev/review-reminder/pkg/types"
)

// Card constants.
const (
	cardTitle       = "Outstanding MR review requests"
	cardContentType = "application/vnd.microsoft.card.adaptive"
	cardSchema      = "http://adaptivecards.io/schemas/adaptive-card.json"
	cardVersion     = "1.0"
)

// Message is the webhook payload: a message carrying one Adaptive Card.
type Message struct {
	Type        string       `json:"type"`
	Attachments []Attachment `json:"attachments"`
}

// Attachment wraps an Adaptive Card.
type Attachment struct {
	ContentType string `json:"contentType"`
	Content     Card   `json:"content"`
}

// Card is a minimal Adaptive Card with Teams mention support.
type Card struct {
	Type    string      `json:"type"`
	Schema  string      `json:"$schema"`
	Version string      `json:"version"`
	MSTeams MSTeams     `json:"msteams"`
	Body    []TextBlock `json:"body"`
}

// TextBlock is an Adaptive Card text element.
type TextBlock struct {
	Type   string `json:"type"`
	Text   string `json:"text"`
	Weight string `json:"weight,omitempty"`
	Wrap   bool   `json:"wrap,omitempty"`
}

// MSTeams holds Teams-specific card extensions.
type MSTeams struct {
	Width    string    `json:"width"`
	Entities []Mention `json:"entities"`
}

// Mention links an <at> tag in the card text to a Teams user.
type Mention struct {
	Type      string    `json:"type"`
	Text      string    `json:"text"`
	Mentioned Mentioned `json:"mentioned"`
}

// Mentioned identifies the mentioned user by address.
type Mentioned struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

var linkTextEscaper = strings.NewReplacer("[", "(", "]", ")")

// BuildMessage builds one card listing every merge request the recipient owes,
// mentioning the recipient so Teams notifies them.
func BuildMessage(to reminder.Recipient, mrs []types.MergeRequest) Message {
	name := to.Name
	if name == "" {
		name = to.Username
	}
	mention := "<at>" + name + "</at>"

	body := make([]TextBlock, 0, len(mrs)+2)
	body = append(body, TextBlock{Type: "TextBlock", Weight: "Bolder", Text: cardTitle})
	body = append(body, TextBlock{
		Type: "TextBlock",
		Wrap: true,
		Text: fmt.Sprintf("%s, %d merge %s waiting on your review:", mention, len(mrs), plural(len(mrs), "request", "requests")),
	})
	for _, mr := range mrs {
		body = append(body, TextBlock{Type: "TextBlock", Wrap: true, Text: mergeRequestLine(mr)})
	}

	return Message{
		Type: "message",
		Attachments: []Attachment{{
			ContentType: cardContentType,
			Content: Card{
				Type:    "AdaptiveCard",
				Schema:  cardSchema,
				Version: cardVersion,
				Body:    body,
				MSTeams: MSTeams{
					Width: "Full",
					Entities: []Mention{{
						Type:      "mention",
						Text:      mention,
						Mentioned: Mentioned{ID: to.Address, Name: name},
					}},
				},
			},
		}},
	}
}

func mergeRequestLine(mr types.MergeRequest) string {
	title := linkTextEscaper.Replace(mr.Title)
	line := title
	if mr.WebURL != "" {
		line = fmt.Sprintf("[%s](%s)", title, mr.WebURL)
	}
	if mr.Project != "" {
		line += fmt.Sprintf(" (%s !%d)", mr.Project, mr.IID)
	}
	return line
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
