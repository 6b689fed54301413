// Package notification turns validated events into chat notification
// documents. Everything in it is pure.
package notification

import "time"

// Embed colors.
const (
	ColorGreen  = 0x238636
	ColorGray   = 0x6e7681
	ColorPurple = 0x8957e5
	ColorRed    = 0xcb2431
	ColorAmber  = 0xd29922
)

// Length limits enforced by the chat endpoint.
const (
	MaxTitleLen       = 256
	MaxDescriptionLen = 4096
	MaxFieldValueLen  = 1024
)

// Document is a rich notification. Its JSON form is a Discord embed.
type Document struct {
	Title       string    `json:"title,omitempty"`
	Description string    `json:"description,omitempty"`
	URL         string    `json:"url,omitempty"`
	Color       int       `json:"color,omitempty"`
	Timestamp   time.Time `json:"timestamp,omitzero"`
	Footer      *Footer   `json:"footer,omitempty"`
	Author      *Author   `json:"author,omitempty"`
	Fields      []Field   `json:"fields,omitempty"`
}

// Footer is the small text under the document.
type Footer struct {
	Text    string `json:"text"`
	IconURL string `json:"icon_url,omitempty"`
}

// Author is the acting user shown above the title.
type Author struct {
	Name    string `json:"name"`
	URL     string `json:"url,omitempty"`
	IconURL string `json:"icon_url,omitempty"`
}

// Field is a name/value pair rendered in the document body.
type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// Empty reports whether the document has nothing to render.
func (d Document) Empty() bool {
	return d.Title == "" && d.Description == "" && len(d.Fields) == 0
}
