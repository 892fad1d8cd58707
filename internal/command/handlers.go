package command

import (
	"context"
	"math"
	"math/rand/v2"
	"strconv"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Handler renders the reply text for one command. payload is the raw update.
type Handler func(ctx context.Context, userID int64, text string, payload map[string]any) (string, error)

// StartHandler greets the user.
func StartHandler(_ context.Context, _ int64, _ string, _ map[string]any) (string, error) {
	return FormatInfo(`🤖 Welcome to the Telegram bot demo!

📋 <b>Features:</b>
• Command routing
• Validated webhook intake
• Stateless design

🚀 <b>Getting started:</b>
• Send /help to list every command
• Send /balance to see a (simulated) balance

💡 Send /help to see all available commands
`), nil
}

// HelpHandler lists the commands.
func HelpHandler(_ context.Context, _ int64, _ string, _ map[string]any) (string, error) {
	return HelpText(), nil
}

// InvalidHandler answers unknown commands.
func InvalidHandler(_ context.Context, _ int64, _ string, _ map[string]any) (string, error) {
	return FormatError(`❓ Unknown command

💡 Send /help for the full command list
`), nil
}

// BalanceHandler returns a handler reporting simulated balances. rnd yields
// values in [0,1); now stamps the query time. Nil arguments use math/rand/v2
// and time.Now.
func BalanceHandler(rnd func() float64, now func() time.Time) Handler {
	if rnd == nil {
		rnd = rand.Float64
	}
	if now == nil {
		now = time.Now
	}
	printer := message.NewPrinter(language.English)
	return func(_ context.Context, userID int64, _ string, _ map[string]any) (string, error) {
		available := roundCents(rnd() * 100000)
		frozen := roundCents(rnd() * 10000)
		total := available + frozen

		return printer.Sprintf(`💰 <b>Balance</b>

🆔 User ID: <code>%s</code>
🏷️ Account type: <code>demo</code>

💵 Available: <code>¥%.2f</code>
❄️ Frozen: <code>¥%.2f</code>
💎 Total: <code>¥%.2f</code>

⏰ Queried at: %s
📊 Simulated data for demonstration only

💡 Send /help for more commands
`, strconv.FormatInt(userID, 10), available, frozen, total, now().Format(time.DateTime)), nil
	}
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
