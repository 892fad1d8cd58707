package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/marcus-qen/botgate/internal/command"
	"github.com/marcus-qen/botgate/internal/webhook"
)

// Inspection is the offline view of one update payload: what the gateway
// would extract and which command it would route to. Header, IP and clock
// dependent checks are not part of it.
type Inspection struct {
	ValidFormat bool   `json:"valid_format"`
	UpdateID    int64  `json:"update_id,omitempty"`
	UserID      int64  `json:"user_id,omitempty"`
	ChatID      int64  `json:"chat_id,omitempty"`
	Text        string `json:"text,omitempty"`
	TextLength  int    `json:"text_length"`
	TooLong     bool   `json:"too_long"`
	Routable    bool   `json:"routable"`
	Command     string `json:"command,omitempty"`
}

func inspectPayload(p webhook.Payload) Inspection {
	ins := Inspection{ValidFormat: webhook.ValidateFormat(p)}
	ins.UpdateID, _ = p.Int64("update_id")

	if text, ok := webhook.ExtractText(p); ok {
		ins.TextLength = webhook.TextLength(text)
		ins.TooLong = ins.TextLength > webhook.MaxMessageLength
	}

	u, ok := webhook.Extract(p)
	ins.UserID, ins.ChatID, ins.Text = u.UserID, u.ChatID, u.Text
	if ok && len(u.Text) > 0 && u.Text[0] == '/' {
		ins.Routable = true
		ins.Command = command.Classify(u.Text).String()
	}
	return ins
}

func runInspect(cfg cliConfig, args []string, stdin io.Reader, out io.Writer) error {
	if len(args) > 1 {
		return fmt.Errorf("usage: inspect [file]")
	}

	in := stdin
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open payload: %w", err)
		}
		defer f.Close()
		in = f
	}

	p, err := webhook.ParsePayload(in)
	if err != nil {
		return err
	}
	ins := inspectPayload(p)

	if cfg.jsonOutput {
		return PrintJSON(out, ins)
	}

	cmd := "-"
	if ins.Routable {
		cmd = ins.Command
	}
	tbl := newTable("FORMAT", "UPDATE", "USER", "CHAT", "LEN", "ROUTE", "COMMAND", "TEXT")
	tbl.add(
		ColorState(formatLabel(ins.ValidFormat)),
		idOrDash(ins.UpdateID),
		idOrDash(ins.UserID),
		idOrDash(ins.ChatID),
		strconv.Itoa(ins.TextLength),
		ColorState(routeLabel(ins.Routable)),
		cmd,
		Truncate(ins.Text, 40),
	)
	tbl.write(out)
	if ins.TooLong {
		fmt.Fprintf(out, "\ntext exceeds %d UTF-16 units and would be rejected\n", webhook.MaxMessageLength)
	}
	return nil
}

func formatLabel(ok bool) string {
	if ok {
		return "ok"
	}
	return "invalid"
}

func routeLabel(routable bool) string {
	if routable {
		return "routable"
	}
	return "ignored"
}
