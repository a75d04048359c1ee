// Package prompt asks the operator to paste the authorization callback URL
// after completing the login in a browser.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"receipts/pkg/browser"

	"github.com/chzyer/readline"
)

// CallbackPrompt is shown when reading the callback URL
const CallbackPrompt = "Once done, paste your callback URL here: "

// ErrCancelled is returned when the operator interrupts the prompt
var ErrCancelled = errors.New("authorization cancelled")

// Prompter presents the authorization URL on a terminal and reads the
// callback URL back. It blocks until a line is entered or ctx is done.
type Prompter struct {
	in          io.ReadCloser
	out         io.Writer
	openBrowser bool

	open     func(url string) error
	readLine func(prompt string) (string, error)
}

// Option configures a Prompter
type Option func(*Prompter)

// WithInput reads the callback URL from r instead of stdin. If r is an
// io.ReadCloser it is closed when a pending read is cancelled.
func WithInput(r io.Reader) Option {
	return func(p *Prompter) {
		if rc, ok := r.(io.ReadCloser); ok {
			p.in = rc
		} else if r != nil {
			p.in = io.NopCloser(r)
		}
	}
}

// WithOutput writes messages to w instead of stdout
func WithOutput(w io.Writer) Option {
	return func(p *Prompter) {
		if w != nil {
			p.out = w
		}
	}
}

// WithBrowser also opens the authorization URL in the default browser
func WithBrowser(enabled bool) Option {
	return func(p *Prompter) {
		p.openBrowser = enabled
	}
}

// New creates a Prompter reading from stdin
func New(opts ...Option) *Prompter {
	p := &Prompter{
		in:   os.Stdin,
		out:  os.Stdout,
		open: browser.Open,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.readLine == nil {
		p.readLine = p.readlineInput
	}
	return p
}

// AwaitCallback implements oauth.CallbackSource. Cancelling ctx closes the
// input, so the Prompter cannot be used again afterwards.
func (p *Prompter) AwaitCallback(ctx context.Context, authURL string) (string, error) {
	fmt.Fprintf(p.out, "Visit %s and follow email flow to obtain your temporary authorization code...\n", authURL)

	if p.openBrowser {
		if err := p.open(authURL); err != nil {
			fmt.Fprintf(p.out, "Could not open browser: %v\n", err)
		}
	}

	type result struct {
		line string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		for {
			line, err := p.readLine(CallbackPrompt)
			line = strings.TrimSpace(line)
			if err != nil || line != "" {
				done <- result{line, err}
				return
			}
		}
	}()

	select {
	case <-ctx.Done():
		// Unblock the pending read so the reader goroutine exits
		_ = p.in.Close()
		return "", fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
	case r := <-done:
		if errors.Is(r.err, readline.ErrInterrupt) {
			return "", ErrCancelled
		}
		if errors.Is(r.err, io.EOF) {
			if r.line != "" {
				return r.line, nil
			}
			return "", fmt.Errorf("no callback URL entered: %w", r.err)
		}
		if r.err != nil {
			return "", fmt.Errorf("readline error: %w", r.err)
		}
		return r.line, nil
	}
}

func (p *Prompter) readlineInput(prompt string) (string, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		Stdin:           p.in,
		Stdout:          p.out,
		InterruptPrompt: "^C",
	})
	if err != nil {
		return "", fmt.Errorf("failed to create readline instance: %w", err)
	}
	defer rl.Close()

	return rl.Readline()
}
