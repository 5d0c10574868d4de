package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"clarifier/pkg/api"
	"clarifier/pkg/clarify"
	"clarifier/pkg/persistence"
)

// localOwnerToken identifies sessions started from the terminal.
const localOwnerToken = "local-terminal"

func runChat(args []string) error {
	fs := flag.NewFlagSet("chat", flag.ContinueOnError)
	projectDir := fs.String("projectdir", ".", "Project directory")
	memory := fs.Bool("memory", false, "Keep the session in memory instead of the project database")
	document := fs.String("document", "", "Text file with extracted document content")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, cleanup, err := setupProject(*projectDir, false)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var store clarify.Store
	if *memory {
		store = clarify.NewMemoryStore()
	} else {
		db, err := persistence.Open(ctx, cfg.DatabasePath(*projectDir))
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer func() { _ = db.Close() }()
		store = db
	}

	var documentText string
	if *document != "" {
		raw, err := os.ReadFile(*document)
		if err != nil {
			return fmt.Errorf("failed to read document: %w", err)
		}
		documentText = string(raw)
	}

	machine, err := buildMachine(ctx, &cfg, store, nil)
	if err != nil {
		return err
	}

	return chatLoop(ctx, machine, os.Stdin, os.Stdout, strings.Join(fs.Args(), " "), documentText)
}

// chatLoop runs one session until it is ready for agents or input ends.
func chatLoop(ctx context.Context, machine api.SessionService, in io.Reader, out io.Writer, request, documentText string) error {
	scanner := bufio.NewScanner(in)
	readLine := func(prompt string) (string, bool) {
		for {
			fmt.Fprint(out, prompt)
			if !scanner.Scan() {
				return "", false
			}
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				return line, true
			}
		}
	}

	if strings.TrimSpace(request) == "" {
		var ok bool
		if request, ok = readLine("What would you like feedback on?\n> "); !ok {
			return nil
		}
	}

	started, err := machine.Start(ctx, api.OwnerID(localOwnerToken), request, documentText)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Session %s\n", started.SessionID)
	questions := started.Questions

	for {
		printQuestions(out, questions)
		answer, ok := readLine("> ")
		if !ok {
			fmt.Fprintf(out, "\nSession %s left in clarifying.\n", started.SessionID)
			return scanner.Err()
		}

		res, err := machine.Clarify(ctx, started.SessionID, answer)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if res.Status == clarify.ReplyReadyForAgents {
			fmt.Fprintf(out, "✅ Ready to create agents after %d answers.\n", len(res.Context.Answers))
			return nil
		}
		questions = res.Questions
	}
}

func printQuestions(out io.Writer, questions []string) {
	for i, q := range questions {
		fmt.Fprintf(out, "  %d. %s\n", i+1, q)
	}
}
