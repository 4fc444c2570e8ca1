package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/term"
)

// prompter asks the operator for values the configuration left open.
type prompter struct {
	in       *bufio.Reader
	out      io.Writer
	fd       int
	terminal bool
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	p := &prompter{in: bufio.NewReader(in), out: out, fd: -1}
	if f, ok := in.(*os.File); ok {
		p.fd = int(f.Fd())
		p.terminal = term.IsTerminal(p.fd)
	}
	return p
}

func (p *prompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// String asks for a value; an empty answer keeps def.
func (p *prompter) String(label, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(p.out, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(p.out, "%s: ", label)
	}
	answer, err := p.readLine()
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(label), err)
	}
	if answer == "" {
		return def, nil
	}
	return answer, nil
}

// Secret asks for a value without echoing it when stdin is a terminal.
func (p *prompter) Secret(label string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", label)
	if p.terminal {
		b, err := term.ReadPassword(p.fd)
		fmt.Fprintln(p.out) // New line after password
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(label), err)
		}
		return string(b), nil
	}
	answer, err := p.readLine()
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(label), err)
	}
	return answer, nil
}

// Int asks for an integer no smaller than min, asking again on bad input.
func (p *prompter) Int(label string, def, min int) (int, error) {
	for {
		answer, err := p.String(label, strconv.Itoa(def))
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(answer)
		if err == nil && n >= min {
			return n, nil
		}
		fmt.Fprintf(p.out, "Enter a whole number of at least %d.\n", min)
	}
}

// Seconds asks for a non-negative number of seconds.
func (p *prompter) Seconds(label string, def time.Duration) (time.Duration, error) {
	for {
		answer, err := p.String(label, strconv.FormatFloat(def.Seconds(), 'f', -1, 64))
		if err != nil {
			return 0, err
		}
		secs, err := strconv.ParseFloat(answer, 64)
		if err == nil && secs >= 0 {
			return time.Duration(secs * float64(time.Second)), nil
		}
		fmt.Fprintln(p.out, "Enter a number of seconds, 0 or more.")
	}
}

// Confirm asks a yes/no question; an empty answer returns def.
func (p *prompter) Confirm(question string, def bool) bool {
	hint := "y/N"
	if def {
		hint = "Y/n"
	}
	fmt.Fprintf(p.out, "%s (%s): ", question, hint)
	answer, err := p.readLine()
	if err != nil || answer == "" {
		return def
	}
	return strings.HasPrefix(strings.ToLower(answer), "y")
}
