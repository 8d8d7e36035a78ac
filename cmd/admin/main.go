package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	log "github.com/sirupsen/logrus"

	"pushrelay/internal/domain/notification"
	"pushrelay/internal/infrastructure/firebase"
	"pushrelay/internal/infrastructure/postgres"
	"pushrelay/internal/shared/auth"
	"pushrelay/internal/shared/config"
	"pushrelay/internal/shared/logger"
)

const usage = `pushrelay admin CLI - management commands for the push relay

Usage:
  admin <command> [options]

Commands:
  hash-key   Print a bcrypt hash of an API key for API_KEY_HASH
  send       Forward one notification through FCM, exactly like the HTTP endpoint
  history    List recent dispatches (requires HISTORY_ENABLED and DB_* settings)

Examples:
  # Generate the hash to put in API_KEY_HASH
  admin hash-key --key=my-relay-key

  # Send a test notification to two devices
  admin send --tokens=tokenA,tokenB --title="Hello" --body="From the relay"

  # Show the last 50 dispatches
  admin history --limit=50
`

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(1)
	}

	command := os.Args[1]

	var err error
	switch command {
	case "hash-key":
		err = runHashKey(os.Args[2:])
	case "send":
		err = runSend(os.Args[2:])
	case "history":
		err = runHistory(os.Args[2:])
	case "help", "-h", "--help":
		fmt.Print(usage)
		return
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		fmt.Print(usage)
		os.Exit(1)
	}

	if err != nil {
		log.WithError(err).Fatalf("%s failed", command)
	}
}

func runHashKey(args []string) error {
	fs := flag.NewFlagSet("hash-key", flag.ExitOnError)
	key := fs.String("key", "", "Plain text API key to hash")
	fs.Parse(args)

	hash, err := auth.HashAPIKey(*key)
	if err != nil {
		return err
	}

	fmt.Println(hash)
	return nil
}

func runSend(args []string) error {
	fs := flag.NewFlagSet("send", flag.ExitOnError)
	tokensStr := fs.String("tokens", "", "Device tokens (comma-separated)")
	title := fs.String("title", "", "Notification title")
	body := fs.String("body", "", "Notification body")
	timeoutStr := fs.String("timeout", "30s", "Timeout for the provider call (e.g., 10s, 1m)")
	fs.Parse(args)

	timeout, err := time.ParseDuration(*timeoutStr)
	if err != nil {
		return fmt.Errorf("invalid --timeout: %w", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	messenger, err := firebase.NewClient(ctx, cfg.Firebase.CredentialsFile)
	if err != nil {
		return err
	}

	opts := notification.ServiceOptions{
		Classify:         firebase.Classify,
		StrictValidation: cfg.Request.StrictValidation,
	}
	if cfg.History.Enabled {
		db, err := postgres.New(ctx, cfg.Database.ConnectionString())
		if err != nil {
			return err
		}
		defer db.Close()
		opts.Recorder = postgres.NewDispatchRepository(db)
	}

	svc := notification.NewService(messenger, opts)
	result, err := svc.Forward(ctx, notification.Request{
		Tokens: splitTokens(*tokensStr),
		Title:  *title,
		Body:   *body,
	})
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}

	fmt.Printf("Successfully sent message: %s\n", result)
	for _, r := range result.Responses {
		if !r.Success() {
			fmt.Printf("  %s: %v (%s)\n", r.Token, r.Err, firebase.Classify(r.Err))
		}
	}
	return nil
}

func runHistory(args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	limit := fs.Int("limit", 20, "Number of dispatches to show")
	fs.Parse(args)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := postgres.New(ctx, cfg.Database.ConnectionString())
	if err != nil {
		return err
	}
	defer db.Close()

	dispatches, err := postgres.NewDispatchRepository(db).ListRecent(ctx, *limit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CREATED\tID\tTOKENS\tOK\tFAILED\tERROR\tTITLE")
	for _, d := range dispatches {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
			d.CreatedAt.Format(time.RFC3339), d.ID, d.TokenCount,
			d.SuccessCount, d.FailureCount, d.ErrorKind, d.Title)
	}
	return w.Flush()
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger.Setup(logger.Options{Level: cfg.Log.Level, Format: "text"})
	return cfg, nil
}

// splitTokens splits on commas and keeps every element as typed, blanks
// included, so the provider sees the same list the HTTP endpoint would.
func splitTokens(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, ",")
}
