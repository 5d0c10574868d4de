// Command clarifier runs the clarification service.
//
//	clarifier [serve] [-projectdir DIR] [-tee]
//	clarifier chat [-memory] [-document FILE] [request...]
//	clarifier secrets set NAME | secrets list
//	clarifier stats [-prometheus URL] [-window 24h]
//	clarifier version
package main

import (
	"fmt"
	"os"

	"clarifier/pkg/version"
)

const usage = `Usage: clarifier <command> [flags]

Commands:
  serve     run the HTTP API (default)
  chat      run a clarification session in the terminal
  secrets   manage the encrypted secrets file (set NAME | list)
  stats     summarize clarification metrics from Prometheus
  version   print build information
`

func main() {
	os.Exit(run(os.Args[1:]))
}

// run dispatches a subcommand and returns the exit code.
func run(args []string) int {
	cmd := "serve"
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		cmd, args = args[0], args[1:]
	}

	var err error
	switch cmd {
	case "serve":
		err = runServe(args)
	case "chat":
		err = runChat(args)
	case "secrets":
		err = runSecrets(args)
	case "stats":
		err = runStats(args)
	case "version":
		fmt.Println(version.String())
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		return 2
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		return 1
	}
	return 0
}
