package ioh

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// StdIOHandler drives a dialogue session over stdin/stdout. It only
// prints an input prompt marker when stdin is a terminal, so piped
// input (a scripted test run) doesn't get prompt noise mixed into its
// output stream.
type StdIOHandler struct {
	out       io.Writer
	in        *bufio.Scanner
	isTTY     bool
	debugSink *slog.Logger
	debugOn   bool
}

func NewStdIOHandler(debugOn bool) *StdIOHandler {
	return &StdIOHandler{
		out:       os.Stdout,
		in:        bufio.NewScanner(os.Stdin),
		isTTY:     isatty.IsTerminal(os.Stdin.Fd()),
		debugSink: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})),
		debugOn:   debugOn,
	}
}

func (h *StdIOHandler) Output(text string) {
	fmt.Fprintln(h.out, text)
}

func (h *StdIOHandler) Input(prompt string) (string, error) {
	if h.isTTY {
		fmt.Fprint(h.out, prompt+" ")
	}
	if !h.in.Scan() {
		if err := h.in.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimRight(h.in.Text(), "\r\n"), nil
}

// ReadTurn reads one line of user input for a dialogue turn, sharing
// the same buffered scanner Input uses so the two never desync over
// the same stdin stream.
func (h *StdIOHandler) ReadTurn() (string, bool) {
	if h.isTTY {
		fmt.Fprint(h.out, "> ")
	}
	if !h.in.Scan() {
		return "", false
	}
	return strings.TrimRight(h.in.Text(), "\r\n"), true
}

func (h *StdIOHandler) Debug(text string) {
	if h.debugOn {
		h.debugSink.Debug(text)
	}
}
