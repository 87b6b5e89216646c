package inspector

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
)

// LineReader is satisfied by *readline.Instance.
type LineReader interface {
	Readline() (string, error)
}

// Exec runs one console line and renders the result as text.
func (i *Inspector) Exec(line string) (string, error) {
	if strings.EqualFold(strings.TrimSpace(line), "help") {
		return usage, nil
	}
	req, err := ParseRequest(line)
	if err != nil {
		return "", err
	}
	resp, err := i.Handle(req)
	if err != nil {
		return "", err
	}

	switch req.Command {
	case "snapshot":
		raw, err := json.MarshalIndent(resp.Snapshot, "", "  ")
		if err != nil {
			return "", err
		}
		return string(raw), nil
	case "read":
		return resp.Data, nil
	case "new":
		return fmt.Sprintf("%v pinned", resp.PageId), nil
	}
	return "ok", nil
}

// RunConsole reads commands until "exit", end of input, or an interrupt on
// an empty line. Command errors are printed and do not stop the loop.
func (i *Inspector) RunConsole(in LineReader, out io.Writer) error {
	for {
		line, err := in.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if len(line) == 0 {
				return nil
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		}
		result, err := i.Exec(line)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		fmt.Fprintln(out, result)
	}
}
