package reply

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild(t *testing.T) {
	d := Build("<b>hi</b>", 99)
	assert.Equal(t, MethodSendMessage, d.Method)
	assert.Equal(t, int64(99), d.ChatID)
	assert.Equal(t, "<b>hi</b>", d.Text)
	assert.Equal(t, "HTML", d.ParseMode)
	assert.False(t, d.IsEmpty())
}

func TestBuildBlankTextIsEmpty(t *testing.T) {
	for _, text := range []string{"", "  ", "\n\t"} {
		assert.True(t, Build(text, 99).IsEmpty(), "text %q", text)
	}
}

func TestEmptyEncodesAsEmptyObject(t *testing.T) {
	out, err := json.Marshal(Empty())
	require.NoError(t, err)
	assert.Equal(t, "{}", string(out))
}

func TestWireNames(t *testing.T) {
	d := Descriptor{
		Method:                MethodSendMessage,
		ChatID:                -1001,
		Text:                  "x",
		ParseMode:             "HTML",
		MessageID:             5,
		CallbackQueryID:       "cb",
		DisableWebPagePreview: true,
		DisableNotification:   true,
	}
	out, err := json.Marshal(d)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(out, &fields))
	for _, key := range []string{"method", "chat_id", "text", "parse_mode", "message_id", "callback_query_id", "disable_web_page_preview", "disable_notification"} {
		assert.Contains(t, fields, key)
	}
	assert.Len(t, fields, 8)
}

func TestApology(t *testing.T) {
	d := Apology(42)
	assert.Equal(t, int64(42), d.ChatID)
	assert.Equal(t, ApologyText, d.Text)
	assert.Equal(t, MethodSendMessage, d.Method)
}

func TestChatIDEncoding(t *testing.T) {
	raw, err := json.Marshal(Build("hi", 0))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "chat_id")

	raw, err = json.Marshal(Build("hi", -1001234567890))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"chat_id":-1001234567890`)
}
