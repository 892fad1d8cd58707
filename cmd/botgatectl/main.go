package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/marcus-qen/botgate/internal/config"
	"github.com/marcus-qen/botgate/internal/keychain"
	"github.com/marcus-qen/botgate/internal/shared/signing"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const (
	defaultServer = "http://localhost:8080"
)

type cliConfig struct {
	server     string
	configPath string
	jsonOutput bool
}

func main() {
	cfg, command, args, err := parseArgs(os.Args[1:])
	if errors.Is(err, errShowUsage) {
		printUsage()
		if len(os.Args) == 1 {
			os.Exit(1)
		}
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		printUsage()
		os.Exit(1)
	}

	ctx := context.Background()

	switch command {
	case "health":
		err = runHealth(ctx, NewAPIClient(cfg.server), cfg, os.Stdout)
	case "status":
		err = runStatus(ctx, NewAPIClient(cfg.server), cfg, os.Stdout)
	case "webhook":
		err = runWebhook(ctx, cfg, args, os.Stdout)
	case "inspect":
		err = runInspect(cfg, args, os.Stdin, os.Stdout)
	case "secret":
		err = runSecret(cfg, args, os.Stdin, os.Stdout)
	case "version":
		fmt.Printf("botgatectl %s (commit: %s, built: %s)\n", version, commit, date)
		return
	case "help", "--help", "-h":
		printUsage()
	default:
		err = fmt.Errorf("unknown command: %s", command)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

var errShowUsage = errors.New("show usage")

func parseArgs(args []string) (cliConfig, string, []string, error) {
	cfg := cliConfig{
		server:     defaultServer,
		configPath: os.Getenv("BOTGATE_CONFIG"),
	}
	if v := os.Getenv("BOTGATE_SERVER"); v != "" {
		cfg.server = v
	}

	idx := 0
	for idx < len(args) {
		arg := args[idx]
		if !strings.HasPrefix(arg, "-") {
			break
		}
		switch arg {
		case "--help", "-h":
			return cfg, "", nil, errShowUsage
		case "--server", "-s":
			if idx+1 >= len(args) {
				return cfg, "", nil, fmt.Errorf("--server requires a value")
			}
			cfg.server = args[idx+1]
			idx += 2
		case "--config", "-c":
			if idx+1 >= len(args) {
				return cfg, "", nil, fmt.Errorf("--config requires a value")
			}
			cfg.configPath = args[idx+1]
			idx += 2
		case "--json":
			cfg.jsonOutput = true
			idx++
		default:
			return cfg, "", nil, fmt.Errorf("unknown flag: %s", arg)
		}
	}

	if idx >= len(args) {
		return cfg, "", nil, errShowUsage
	}

	return cfg, args[idx], args[idx+1:], nil
}

func printUsage() {
	fmt.Print(`Usage: botgatectl [--server <url>] [--config <file>] [--json] <command>

Commands:
  health                    Check the gateway health endpoint
  status                    Show gateway status
  webhook set [--drop-pending]
                            Register bot.webhook_url with Telegram
  webhook delete [--drop-pending]
                            Remove the Telegram webhook
  webhook info              Show Telegram's view of the webhook
  inspect [file]            Dry-run an update payload (stdin when no file)
  secret generate           Print a random webhook secret
  secret set <account>      Store the webhook secret (read from stdin) in the keychain
  secret delete <account>   Remove a stored secret
  version                   Print version
`)
}

func runHealth(ctx context.Context, client *APIClient, cfg cliConfig, out io.Writer) error {
	text, err := client.Health(ctx)
	if err != nil {
		return err
	}
	if cfg.jsonOutput {
		return PrintJSON(out, map[string]string{"status": "ok", "message": text})
	}
	fmt.Fprintln(out, ColorState("ok"), text)
	return nil
}

func runStatus(ctx context.Context, client *APIClient, cfg cliConfig, out io.Writer) error {
	status, err := client.Status(ctx)
	if err != nil {
		return err
	}
	if cfg.jsonOutput {
		return PrintJSON(out, status)
	}
	allowList := "open"
	if status.AllowedIPs > 0 {
		allowList = fmt.Sprintf("%d entries", status.AllowedIPs)
	}
	replays := "off"
	if r := status.AntiReplay; r != nil {
		replays = fmt.Sprintf("%d ids / %s", r.Entries, r.Window)
	}
	quotas := "off"
	if q := status.RateLimit; q != nil {
		quotas = fmt.Sprintf("%d ip / %d user", q.IPBuckets, q.UserBuckets)
	}
	tbl := newTable("STATUS", "VERSION", "SERVER TIME", "ALLOW-LIST", "ANTI-REPLAY", "RATE BUCKETS")
	tbl.add(ColorState(status.Status), status.Version, FormatMillis(status.Timestamp), allowList, replays, quotas)
	tbl.write(out)
	return nil
}

func runWebhook(ctx context.Context, cfg cliConfig, args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: webhook <set|delete|info>")
	}
	sub, rest := args[0], args[1:]

	dropPending := false
	for _, a := range rest {
		switch a {
		case "--drop-pending":
			dropPending = true
		default:
			return fmt.Errorf("unknown flag: %s", a)
		}
	}

	gw, err := loadGatewayConfig(cfg.configPath)
	if err != nil {
		return err
	}
	tg, err := NewTelegramClient(gw.Bot.Token)
	if err != nil {
		return err
	}

	switch sub {
	case "set":
		if strings.TrimSpace(gw.Bot.WebhookURL) == "" {
			return fmt.Errorf("bot.webhook_url is not configured")
		}
		if !gw.HasSecret() {
			return fmt.Errorf("bot.secret_token is not configured; the gateway would reject every update")
		}
		if err := tg.SetWebhook(ctx, gw.Bot.WebhookURL, gw.Bot.SecretToken, dropPending); err != nil {
			return err
		}
		fmt.Fprintf(out, "webhook set to %s\n", gw.Bot.WebhookURL)
		return nil
	case "delete":
		if err := tg.DeleteWebhook(ctx, dropPending); err != nil {
			return err
		}
		fmt.Fprintln(out, "webhook deleted")
		return nil
	case "info":
		info, err := tg.WebhookInfo(ctx)
		if err != nil {
			return err
		}
		if cfg.jsonOutput {
			return PrintJSON(out, info)
		}
		lastError := "-"
		if info.LastErrorMessage != "" {
			lastError = FormatUnix(info.LastErrorDate) + " " + Truncate(info.LastErrorMessage, 60)
		}
		tbl := newTable("URL", "PENDING", "IP", "LAST ERROR")
		tbl.add(orDash(info.URL), fmt.Sprintf("%d", info.PendingUpdateCount), orDash(info.IPAddress), lastError)
		tbl.write(out)
		return nil
	default:
		return fmt.Errorf("unknown webhook subcommand: %s", sub)
	}
}

func runSecret(cfg cliConfig, args []string, in io.Reader, out io.Writer) error {
	if len(args) == 1 && args[0] == "generate" {
		secret, err := signing.GenerateSecret(32)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, secret)
		return nil
	}
	if len(args) != 2 {
		return fmt.Errorf("usage: secret <generate|set|delete> [account]")
	}
	sub, account := args[0], strings.TrimSpace(args[1])
	if account == "" {
		return fmt.Errorf("account is required")
	}

	switch sub {
	case "set":
		data, err := io.ReadAll(io.LimitReader(in, 4096))
		if err != nil {
			return fmt.Errorf("read secret: %w", err)
		}
		secret := strings.TrimSpace(string(data))
		if err := signing.CheckSecret(secret); err != nil {
			return err
		}
		if err := keychain.Set(account, secret); err != nil {
			return fmt.Errorf("store secret: %w", err)
		}
		if cfg.jsonOutput {
			return PrintJSON(out, map[string]string{"account": account, "status": "stored"})
		}
		fmt.Fprintf(out, "stored secret for %q; set bot.secret_keyring_account to use it\n", account)
		return nil
	case "delete":
		if err := keychain.Delete(account); err != nil {
			return fmt.Errorf("delete secret: %w", err)
		}
		fmt.Fprintf(out, "deleted secret for %q\n", account)
		return nil
	default:
		return fmt.Errorf("unknown secret subcommand: %s", sub)
	}
}

func loadGatewayConfig(path string) (config.Config, error) {
	gw, err := config.Load(path)
	if err != nil {
		return gw, err
	}
	if strings.TrimSpace(gw.Bot.Token) == "" {
		return gw, fmt.Errorf("bot.token is not configured (set BOTGATE_BOT_TOKEN)")
	}
	return gw, nil
}
