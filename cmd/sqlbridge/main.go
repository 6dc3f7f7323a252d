package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"sqlbridge/internal/config"
	"sqlbridge/internal/session"
)

var version = "dev"

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "sqlbridge %s\n\n", version)
		fmt.Fprintf(os.Stderr, "Loads the result of a read-only SQL query into an in-memory dataset.\n\n")
		fmt.Fprintf(os.Stderr, "Usage:\n")
		fmt.Fprintf(os.Stderr, "  sqlbridge [flags]            read commands from stdin\n")
		fmt.Fprintf(os.Stderr, "  sqlbridge -f script.txt      run a command script, stop at the first error\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables (Optional):\n")
		fmt.Fprintf(os.Stderr, "  BRIDGE_URL          Connection URL (e.g., jdbc:mysql://localhost:3306/db)\n")
		fmt.Fprintf(os.Stderr, "  BRIDGE_CREDENTIALS  Credential file with user= and password= lines\n")
		fmt.Fprintf(os.Stderr, "  BRIDGE_TIMEZONE     Zone for zoned date/time values (e.g., UTC)\n")
		fmt.Fprintf(os.Stderr, "  STORAGE_TYPE        Export destination: local or s3\n")
		fmt.Fprintf(os.Stderr, "\nExample:\n")
		fmt.Fprintf(os.Stderr, "  echo 'initialize jdbc:mysql://localhost:3306/db db.properties' > run.txt\n")
		fmt.Fprintf(os.Stderr, "  echo 'query SELECT * FROM orders LIMIT 100' >> run.txt\n")
		fmt.Fprintf(os.Stderr, "  sqlbridge -f run.txt\n")
	}

	script := flag.String("f", "", "Run commands from this file instead of stdin")
	showVersion := flag.Bool("version", false, "Show version")
	flag.Parse()

	if *showVersion {
		fmt.Printf("sqlbridge %s\n", version)
		os.Exit(0)
	}

	_ = godotenv.Load()
	cfg := config.Load()
	setupLogger(cfg.LogFormat)

	os.Exit(run(cfg, *script))
}

func setupLogger(format string) {
	// stdout carries command output, so logs go to stderr.
	var handler slog.Handler = slog.NewJSONHandler(os.Stderr, nil)
	if format == "text" {
		handler = slog.NewTextHandler(os.Stderr, nil)
	}
	slog.SetDefault(slog.New(handler))
}

func run(cfg *config.Config, script string) int {
	loc, err := cfg.Location()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		return statusFailure
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	s := session.New(session.WithLocation(loc), session.WithConnectTimeout(cfg.ConnectTimeout))
	sh := newShell(cfg, s, os.Stdout, os.Stderr)

	if cfg.AutoInitialize() {
		if err := sh.initializeWith(cfg.BridgeURL, cfg.CredentialFile); err != nil {
			sh.report(err)
			return statusFailure
		}
	}

	if script != "" {
		f, err := os.Open(script)
		if err != nil {
			slog.Error("Failed to open script", "path", script, "error", err)
			return statusFailure
		}
		defer f.Close()
		return sh.run(ctx, f, true, "")
	}

	prompt := ""
	if fi, err := os.Stdin.Stat(); err == nil && fi.Mode()&os.ModeCharDevice != 0 {
		prompt = ". "
	}
	return sh.run(ctx, os.Stdin, prompt == "", prompt)
}
