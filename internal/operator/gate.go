// Package operator holds the points where a run waits for the person at the
// keyboard.
package operator

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"
)

// Gate prints a prompt and waits for the operator to press Enter.
type Gate struct {
	in  io.Reader
	out io.Writer

	once  sync.Once
	lines chan struct{}
}

// NewGate reads answers from in and writes prompts to out.
func NewGate(in io.Reader, out io.Writer) *Gate {
	return &Gate{in: in, out: out, lines: make(chan struct{})}
}

// Wait prints prompt and blocks until a line is read or ctx is done. Once
// the input is exhausted every Wait returns immediately.
func (g *Gate) Wait(ctx context.Context, prompt string) error {
	g.once.Do(func() { go g.read() })

	fmt.Fprintln(g.out, prompt)
	select {
	case <-g.lines:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// read forwards one signal per input line and closes lines at EOF.
func (g *Gate) read() {
	defer close(g.lines)
	scanner := bufio.NewScanner(g.in)
	for scanner.Scan() {
		g.lines <- struct{}{}
	}
}
