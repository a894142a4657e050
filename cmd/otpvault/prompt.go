package main

import (
	"bufio"
	"bytes"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// promptFunc asks for a secret and returns it. Callers own the returned
// slice and may wipe it.
type promptFunc func(label string) ([]byte, error)

var errPasswordMismatch = errors.New("passwords do not match")

// newTerminalPrompt reads passwords without echo when in is a terminal and
// line by line otherwise, so passwords can be piped in.
func newTerminalPrompt(in *os.File, out io.Writer) promptFunc {
	reader := bufio.NewReader(in)
	return func(label string) ([]byte, error) {
		fmt.Fprint(out, label)

		fd := int(in.Fd())
		if term.IsTerminal(fd) {
			pw, err := term.ReadPassword(fd)
			fmt.Fprintln(out)
			if err != nil {
				return nil, fmt.Errorf("read password: %w", err)
			}
			return pw, nil
		}

		line, err := reader.ReadBytes('\n')
		if err != nil && (!errors.Is(err, io.EOF) || len(line) == 0) {
			return nil, fmt.Errorf("read password: %w", err)
		}
		return bytes.TrimRight(line, "\r\n"), nil
	}
}

// newPassword asks for a password twice and returns it once both match.
func (a *app) newPassword(label string) ([]byte, error) {
	pw, err := a.prompt(label)
	if err != nil {
		return nil, err
	}
	confirm, err := a.prompt("Confirm password: ")
	if err != nil {
		wipe(pw)
		return nil, err
	}
	defer wipe(confirm)

	if subtle.ConstantTimeCompare(pw, confirm) != 1 {
		wipe(pw)
		return nil, errPasswordMismatch
	}
	return pw, nil
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
