package command

import (
	"fmt"
	"strings"
)

// GenericErrorText is sent when a handler fails.
const GenericErrorText = "❌ Something went wrong while processing the command, please try again later"

func FormatError(msg string) string   { return fmt.Sprintf("❌ Error: %s", msg) }
func FormatSuccess(msg string) string { return fmt.Sprintf("✅ %s", msg) }
func FormatInfo(msg string) string    { return fmt.Sprintf("ℹ️ %s", msg) }
func FormatWarning(msg string) string { return fmt.Sprintf("⚠️ %s", msg) }

// HelpText renders the command list shown by /help.
func HelpText() string {
	var b strings.Builder
	b.WriteString("<b>Help</b>\n\n")
	b.WriteString("🤖 <b>About this demo:</b>\n")
	b.WriteString("• Every command works without account binding\n")
	b.WriteString("• All figures shown are simulated\n\n")
	b.WriteString("📋 <b>Commands:</b>\n")
	for _, t := range Types() {
		if t.Prefix() == "" {
			continue
		}
		fmt.Fprintf(&b, "%s - %s\n", t.Prefix(), t.Description())
	}
	b.WriteString("\n💡 <b>Tip:</b> the bot keeps no state between messages\n")
	return b.String()
}
