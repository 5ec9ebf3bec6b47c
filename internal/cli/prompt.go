package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/roach88/guildgrid/internal/gate"
	"github.com/roach88/guildgrid/internal/model"
)

// termPrompter reads passphrases from the terminal without echo, or one
// line at a time when input is not a terminal.
type termPrompter struct {
	in    io.Reader
	out   io.Writer
	lines *bufio.Reader
}

func newTermPrompter(in io.Reader, out io.Writer) *termPrompter {
	return &termPrompter{in: in, out: out}
}

// PromptPassphrase implements gate.Prompter.
func (p *termPrompter) PromptPassphrase(ctx context.Context, kind gate.PromptKind, doc model.GridDocument) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	switch kind {
	case gate.PromptUnlock:
		fmt.Fprintf(p.out, "Passphrase for %q: ", doc.Name)
	case gate.PromptProtect:
		fmt.Fprintf(p.out, "New passphrase for %q: ", doc.Name)
	default:
		return "", fmt.Errorf("unsupported prompt %s", kind)
	}

	if f, ok := p.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		raw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(p.out)
		if err != nil {
			return "", fmt.Errorf("read passphrase: %w", err)
		}
		return string(raw), nil
	}

	if p.lines == nil {
		p.lines = bufio.NewReader(p.in)
	}
	line, err := p.lines.ReadString('\n')
	fmt.Fprintln(p.out)
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read passphrase: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
