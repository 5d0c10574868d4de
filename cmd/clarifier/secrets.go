package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"clarifier/pkg/config"
)

func runSecrets(args []string) error {
	fs := flag.NewFlagSet("secrets", flag.ContinueOnError)
	projectDir := fs.String("projectdir", ".", "Project directory")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rest := fs.Args()
	if len(rest) == 0 {
		return errors.New("usage: clarifier secrets set NAME | secrets list")
	}

	password, err := readPassword("Enter clarifier password: ")
	if err != nil {
		return err
	}
	if err := config.LoadSecretsFile(*projectDir, password); err != nil {
		return err
	}

	switch rest[0] {
	case "list":
		names := config.GetDecryptedSecretNames()
		if len(names) == 0 {
			fmt.Println("No secrets stored.")
			return nil
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil

	case "set":
		if len(rest) != 2 {
			return errors.New("usage: clarifier secrets set NAME")
		}
		value, err := readSecretValue(rest[1])
		if err != nil {
			return err
		}
		config.SetSecret(rest[1], value)
		if err := config.SaveSecretsToFile(*projectDir, password); err != nil {
			return err
		}
		fmt.Printf("✅ %s saved to %s/secrets.json.enc\n", rest[1], config.ProjectConfigDir)
		return nil

	default:
		return fmt.Errorf("unknown secrets command %q", rest[0])
	}
}

// readSecretValue reads a hidden value on a terminal, or one line from piped stdin.
func readSecretValue(name string) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprintf(os.Stderr, "Value for %s: ", name)
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("failed to read value: %w", err)
		}
		return strings.TrimSpace(string(raw)), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read value from stdin: %w", err)
	}
	value := strings.TrimSpace(line)
	if value == "" {
		return "", errors.New("secret value must not be empty")
	}
	return value, nil
}
