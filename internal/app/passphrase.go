package app

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"fic-go/internal/fic"
)

// ErrNoPassphrase is returned when a passphrase is needed but FIC_PASSPHRASE
// is unset and stdin is not a terminal.
var ErrNoPassphrase = errors.New("no passphrase available: set " + EnvPassphrase + " or run from a terminal")

// PassphraseSource returns a fic.PassphraseFunc that reads FIC_PASSPHRASE,
// or prompts on prompt and reads from the terminal attached to in.
func PassphraseSource(in *os.File, prompt io.Writer) fic.PassphraseFunc {
	return func() (string, error) {
		if p, ok := os.LookupEnv(EnvPassphrase); ok {
			return p, nil
		}
		return readPassword(in, prompt, "Passphrase: ")
	}
}

// ReadNewPassphrase asks for a new passphrase twice and requires both entries
// to match. FIC_PASSPHRASE, when set, is used without prompting.
func ReadNewPassphrase(in *os.File, prompt io.Writer) (string, error) {
	if p, ok := os.LookupEnv(EnvPassphrase); ok {
		if p == "" {
			return "", fmt.Errorf("%s is set but empty", EnvPassphrase)
		}
		return p, nil
	}

	first, err := readPassword(in, prompt, "New passphrase: ")
	if err != nil {
		return "", err
	}
	if first == "" {
		return "", fmt.Errorf("passphrase must not be empty")
	}
	second, err := readPassword(in, prompt, "Confirm passphrase: ")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", fmt.Errorf("passphrases do not match")
	}
	return first, nil
}

func readPassword(in *os.File, prompt io.Writer, label string) (string, error) {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return "", ErrNoPassphrase
	}
	fmt.Fprint(prompt, label)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(prompt)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(b), nil
}
