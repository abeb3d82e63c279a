// Package main provides buddyctl, the maintenance CLI for the buddy
// session store: list sessions, dump per-session logs and todos, or run
// the inspection worker.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/buddyagent/buddy/internal/config"
	"github.com/buddyagent/buddy/internal/db/sqlite"
	"github.com/buddyagent/buddy/internal/todo"
	"github.com/buddyagent/buddy/internal/worker"
)

const version = "0.3.0"

func usage() {
	fmt.Fprintf(os.Stderr, `usage: buddyctl <command> [args]

commands:
  sessions [limit]     list sessions, most recently updated first
  show <session-id>    show one session record
  chat <session-id>    dump the chat log
  messages <session-id> dump the model-message snapshot
  events <session-id>  dump the protocol event log
  todos                dump the todo list
  serve                run the inspection worker
`)
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "buddyctl: load config: %v\n", err)
		os.Exit(1)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "buddyctl: open store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	sessions := sqlite.NewSessionStore(store)
	ctx := context.Background()

	switch os.Args[1] {
	case "sessions":
		limit := cfg.ListLimit
		if len(os.Args) > 2 {
			if parsed, err := strconv.Atoi(os.Args[2]); err == nil && parsed > 0 {
				limit = parsed
			}
		}
		list, err := sessions.ListSessions(ctx, limit)
		exitOn(err)
		printJSON(list)

	case "show":
		sess, err := sessions.GetSession(ctx, arg(2))
		exitOn(err)
		if sess == nil {
			fmt.Fprintln(os.Stderr, "session not found")
			os.Exit(1)
		}
		printJSON(sess)

	case "chat":
		messages, err := sessions.LoadChatMessages(ctx, arg(2))
		exitOn(err)
		printJSON(messages)

	case "messages":
		payloads, err := sessions.LoadMessages(ctx, arg(2))
		exitOn(err)
		printJSON(payloads)

	case "events":
		events, err := sessions.LoadEvents(ctx, arg(2))
		exitOn(err)
		printJSON(events)

	case "todos":
		items, err := todo.NewManagerForScope(sessions, cfg.TodoScope).GetTodos(ctx)
		exitOn(err)
		printJSON(items)

	case "serve":
		runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
		exitOn(worker.New(cfg, store, version).Run(runCtx))

	default:
		usage()
	}
}

func arg(i int) string {
	if len(os.Args) <= i {
		usage()
	}
	return os.Args[i]
}

func exitOn(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "buddyctl: %v\n", err)
		os.Exit(1)
	}
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	exitOn(err)
	fmt.Println(string(data))
}
