package webhook

import "strings"

// Update is the normalized view of a validated call.
type Update struct {
	UserID int64
	ChatID int64
	Text   string
}

// ExtractUserID prefers message.from.id, then callback_query.from.id.
func ExtractUserID(p Payload) (int64, bool) {
	if msg, ok := p.Object("message"); ok {
		if from, ok := msg.Object("from"); ok {
			if id, ok := from.Int64("id"); ok {
				return id, true
			}
		}
	}
	if cb, ok := p.Object("callback_query"); ok {
		if from, ok := cb.Object("from"); ok {
			if id, ok := from.Int64("id"); ok {
				return id, true
			}
		}
	}
	return 0, false
}

// ExtractChatID prefers message.chat.id, then callback_query.message.chat.id.
func ExtractChatID(p Payload) (int64, bool) {
	if msg, ok := p.Object("message"); ok {
		if id, ok := chatID(msg); ok {
			return id, true
		}
	}
	if cb, ok := p.Object("callback_query"); ok {
		if msg, ok := cb.Object("message"); ok {
			if id, ok := chatID(msg); ok {
				return id, true
			}
		}
	}
	return 0, false
}

func chatID(msg Payload) (int64, bool) {
	chat, ok := msg.Object("chat")
	if !ok {
		return 0, false
	}
	return chat.Int64("id")
}

// ExtractText prefers message.text, then callback_query.data.
func ExtractText(p Payload) (string, bool) {
	if msg, ok := p.Object("message"); ok {
		if text, ok := msg.String("text"); ok {
			return text, true
		}
	}
	if cb, ok := p.Object("callback_query"); ok {
		if data, ok := cb.String("data"); ok {
			return data, true
		}
	}
	return "", false
}

// Extract returns the normalized update, or false when the user, the chat or
// non-blank text is missing.
func Extract(p Payload) (Update, bool) {
	userID, ok := ExtractUserID(p)
	if !ok {
		return Update{}, false
	}
	chatID, ok := ExtractChatID(p)
	if !ok {
		return Update{}, false
	}
	text, _ := ExtractText(p)
	text = strings.TrimSpace(text)
	if text == "" {
		return Update{}, false
	}
	return Update{UserID: userID, ChatID: chatID, Text: text}, true
}
