package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/aretw0/promptvault/pkg/core"
	"github.com/aretw0/promptvault/pkg/reconcile"
)

var errNoTerminal = errors.New("interactive decisions need a terminal; use --on-conflict keep|overwrite or --decisions")

func stdinIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// newDecider builds the conflict strategy for an import. A decisions file
// wins over the policy.
func newDecider(policy, decisionsFile string, in io.Reader, out io.Writer, interactive bool) (reconcile.Decider, error) {
	if decisionsFile != "" {
		f, err := os.Open(decisionsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open decisions: %w", err)
		}
		defer f.Close()
		return reconcile.LoadScript(f)
	}

	switch policy {
	case "keep":
		return reconcile.KeepAll, nil
	case "overwrite":
		return reconcile.OverwriteAll, nil
	case "ask", "":
		if !interactive {
			return nil, errNoTerminal
		}
		return &terminalDecider{in: bufio.NewReader(in), out: out}, nil
	default:
		return nil, fmt.Errorf("unknown conflict policy %q", policy)
	}
}

// terminalDecider asks the user about every duplicate prompt. Answering in
// upper case applies the answer to the remaining duplicates.
type terminalDecider struct {
	in  *bufio.Reader
	out io.Writer
	all *reconcile.Decision
}

func (d *terminalDecider) Decide(_ context.Context, existing, incoming core.Prompt) (reconcile.Decision, error) {
	if d.all != nil {
		return *d.all, nil
	}

	fmt.Fprintf(d.out, "\nPrompt %s already exists.\n", existing.ID)
	fmt.Fprintf(d.out, "  current:  %s [%s, %s, updated %s]\n", existing.Title, existing.Model(), stars(existing), updated(existing))
	fmt.Fprintf(d.out, "            %s\n", core.Preview(existing.Content, 12))
	fmt.Fprintf(d.out, "  incoming: %s [%s, %s, updated %s]\n", incoming.Title, incoming.Model(), stars(incoming), updated(incoming))
	fmt.Fprintf(d.out, "            %s\n", core.Preview(incoming.Content, 12))

	for {
		fmt.Fprint(d.out, "[k]eep, [o]verwrite, [K]eep all, [O]verwrite all: ")
		line, err := d.in.ReadString('\n')
		answer := strings.TrimSpace(line)
		if answer == "" && err != nil {
			if errors.Is(err, io.EOF) {
				return reconcile.Keep, errors.New("no answer on input")
			}
			return reconcile.Keep, err
		}

		switch answer {
		case "k", "keep":
			return reconcile.Keep, nil
		case "o", "overwrite":
			return reconcile.Overwrite, nil
		case "K":
			return d.sticky(reconcile.Keep), nil
		case "O":
			return d.sticky(reconcile.Overwrite), nil
		}
		if err != nil {
			return reconcile.Keep, fmt.Errorf("invalid answer %q", answer)
		}
	}
}

func (d *terminalDecider) sticky(v reconcile.Decision) reconcile.Decision {
	d.all = &v
	return v
}

// confirm asks a yes/no question. Only "y" and "yes" count as yes.
func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", question)
	line, _ := bufio.NewReader(in).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
