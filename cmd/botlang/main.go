// cmd/botlang/main.go
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"botlang/internal/ast"
	"botlang/internal/dialogue"
	"botlang/internal/errors"
	"botlang/internal/ioh"
	"botlang/internal/lexer"
	"botlang/internal/parser"
	"botlang/internal/recognize"
	"botlang/internal/recognizer"
	"botlang/internal/store"
)

const version = "1.0.0"

type config struct {
	scriptPath   string
	useLLM       bool
	debug        bool
	botName      string
	storeDSN     string
	storeKind    string
	recognizerURL string
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		showUsage()
		os.Exit(1)
	}

	if args[0] == "--help" || args[0] == "-h" || args[0] == "help" {
		showUsage()
		return
	}
	if args[0] == "--version" || args[0] == "-v" {
		fmt.Printf("botlang %s\n", version)
		return
	}

	cfg, err := parseArgs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func parseArgs(args []string) (config, error) {
	var cfg config
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--llm":
			cfg.useLLM = true
		case "--debug", "-d":
			cfg.debug = true
		case "--bot":
			i++
			if i >= len(args) {
				return cfg, fmt.Errorf("--bot requires a value")
			}
			cfg.botName = args[i]
		case "--store":
			i++
			if i >= len(args) {
				return cfg, fmt.Errorf("--store requires a value (kind:dsn)")
			}
			cfg.storeKind, cfg.storeDSN = splitStoreSpec(args[i])
		case "--recognizer-url":
			i++
			if i >= len(args) {
				return cfg, fmt.Errorf("--recognizer-url requires a value")
			}
			cfg.recognizerURL = args[i]
		default:
			if cfg.scriptPath != "" {
				return cfg, fmt.Errorf("unexpected argument %q", args[i])
			}
			cfg.scriptPath = args[i]
		}
	}
	if cfg.scriptPath == "" {
		return cfg, fmt.Errorf("missing script path")
	}
	return cfg, nil
}

func splitStoreSpec(spec string) (kind, dsn string) {
	for i := 0; i < len(spec); i++ {
		if spec[i] == ':' {
			return spec[:i], spec[i+1:]
		}
	}
	return "sqlite", spec
}

func showUsage() {
	fmt.Println("botlang - a customer-service bot DSL interpreter")
	fmt.Println()
	fmt.Println("usage:")
	fmt.Println("  botlang <script path> [--llm] [--debug] [--bot name] [--store kind:dsn] [--recognizer-url url]")
	fmt.Println()
	fmt.Println("flags:")
	fmt.Println("  --llm               use the network-backed intent recognizer instead of the rule-based one")
	fmt.Println("  --debug, -d         enable the debug output channel")
	fmt.Println("  --bot <name>        run the named bot when the script declares more than one")
	fmt.Println("  --store <kind:dsn>  persist session snapshots (kind: sqlite, postgres, mysql, mssql)")
	fmt.Println("  --recognizer-url    websocket URL for the network-backed recognizer (implies --llm)")
}

func run(cfg config) error {
	started := time.Now()
	source, err := os.ReadFile(cfg.scriptPath)
	if err != nil {
		return fmt.Errorf("reading script: %w", err)
	}

	tokens, err := lexer.NewScanner(string(source)).ScanTokens()
	if err != nil {
		return fmt.Errorf("lexing %s: %w", cfg.scriptPath, err)
	}
	program, err := parser.New(tokens).Parse()
	if err != nil {
		return fmt.Errorf("parsing %s: %w", cfg.scriptPath, err)
	}

	bot, err := selectBot(program, cfg.botName)
	if err != nil {
		return err
	}

	slog.Info("loaded bot", "name", bot.Name, "states", len(bot.States), "intents", len(bot.Intents),
		"elapsed", humanize.RelTime(started, time.Now(), "ago", ""))

	var rec recognize.IntentRecognizer
	switch {
	case cfg.recognizerURL != "":
		rec = recognizer.NewWebSocket(cfg.recognizerURL, 5*time.Second)
	case cfg.useLLM:
		return fmt.Errorf("--llm requires --recognizer-url")
	default:
		rec = recognizer.NewRuleBased()
	}

	stdio := ioh.NewStdIOHandler(cfg.debug)
	session := dialogue.NewSession(bot, rec, stdio)

	var sessStore store.Store
	if cfg.storeKind != "" {
		sessStore, err = store.Open(cfg.storeKind, cfg.storeDSN)
		if err != nil {
			return fmt.Errorf("opening session store: %w", err)
		}
		defer sessStore.Close()
	}

	if err := session.Start(); err != nil {
		return reportRuntime(err)
	}

	for !session.Ended() {
		line, ok := stdio.ReadTurn()
		if !ok {
			break
		}
		if err := session.Turn(line); err != nil {
			if reportErr := reportRuntime(err); reportErr != nil {
				fmt.Fprintln(os.Stderr, reportErr)
			}
			continue
		}
		if sessStore != nil {
			snap, err := session.ToSnapshot()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
			} else if err := sessStore.Save(context.Background(), snap); err != nil {
				fmt.Fprintln(os.Stderr, err)
			}
		}
	}

	slog.Info("session ended", "elapsed", humanize.RelTime(started, time.Now(), "ago", ""))
	return nil
}

func selectBot(program *ast.Program, name string) (*ast.BotDef, error) {
	if name == "" {
		if len(program.Bots) != 1 {
			return nil, fmt.Errorf("script declares %d bots; pick one with --bot", len(program.Bots))
		}
		return program.Bots[0], nil
	}
	for _, b := range program.Bots {
		if b.Name == name {
			return b, nil
		}
	}
	return nil, fmt.Errorf("no bot named %q in script", name)
}

func reportRuntime(err error) error {
	if be, ok := err.(*errors.BotError); ok {
		fmt.Fprintf(os.Stderr, "%s\n", be.Error())
		return nil
	}
	return err
}
