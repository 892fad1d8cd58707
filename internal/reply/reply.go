// Package reply builds the instruction returned in a webhook response body.
// Telegram executes a Bot API method it finds there, which saves the gateway a
// round trip for simple text answers.
package reply

import (
	"strings"

	"github.com/mymmrac/telego"
)

// MethodSendMessage is the Bot API method used for text replies.
const MethodSendMessage = "sendMessage"

// ApologyText is sent when processing failed after a destination was known.
const ApologyText = "Sorry, the system ran into a problem. Please try again later."

// Descriptor is a Bot API call carried in the webhook response. The zero
// value encodes as {} and means "acknowledged, no reply".
//
// A zero ChatID is omitted from the JSON. Telegram never assigns chat 0, and
// callers only build a sendMessage once a chat ID was extracted.
type Descriptor struct {
	Method                string `json:"method,omitempty"`
	ChatID                int64  `json:"chat_id,omitempty"`
	Text                  string `json:"text,omitempty"`
	ParseMode             string `json:"parse_mode,omitempty"`
	MessageID             int64  `json:"message_id,omitempty"`
	CallbackQueryID       string `json:"callback_query_id,omitempty"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview,omitempty"`
	DisableNotification   bool   `json:"disable_notification,omitempty"`
}

// IsEmpty reports whether d carries no instruction.
func (d Descriptor) IsEmpty() bool {
	return d == Descriptor{}
}

// Empty returns the no-reply descriptor.
func Empty() Descriptor {
	return Descriptor{}
}

// SendMessage addresses HTML text to chatID.
func SendMessage(chatID int64, text string) Descriptor {
	return Descriptor{
		Method:    MethodSendMessage,
		ChatID:    chatID,
		Text:      text,
		ParseMode: telego.ModeHTML,
	}
}

// Build returns a sendMessage for non-blank text and the empty descriptor
// otherwise.
func Build(text string, chatID int64) Descriptor {
	if strings.TrimSpace(text) == "" {
		return Empty()
	}
	return SendMessage(chatID, text)
}

// Apology addresses ApologyText to chatID.
func Apology(chatID int64) Descriptor {
	return SendMessage(chatID, ApologyText)
}
