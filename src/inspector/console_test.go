package inspector

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/chzyer/readline"
	"github.com/stretchr/testify/require"

	"bufferpool-golang/src/buffer"
	"bufferpool-golang/src/common"
)

type scriptedReader struct {
	lines []string
	errs  []error
}

func (r *scriptedReader) Readline() (string, error) {
	if len(r.lines) == 0 {
		return "", io.EOF
	}
	line, err := r.lines[0], r.errs[0]
	r.lines, r.errs = r.lines[1:], r.errs[1:]
	return line, err
}

func script(lines ...string) *scriptedReader {
	return &scriptedReader{lines: lines, errs: make([]error, len(lines))}
}

func TestInspector_Exec(t *testing.T) {
	ins, _, _ := newTestInspector(t, 2)

	out, err := ins.Exec("new")
	require.NoError(t, err)
	require.Equal(t, "page(1) pinned", out)

	out, err = ins.Exec("unpin 1 dirty")
	require.NoError(t, err)
	require.Equal(t, "ok", out)

	out, err = ins.Exec("snapshot")
	require.NoError(t, err)
	var snap buffer.Snapshot
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	require.Equal(t, []common.PageId{1}, snap.DirtyPages)

	out, err = ins.Exec("help")
	require.NoError(t, err)
	require.Contains(t, out, "flush-all")

	_, err = ins.Exec("unpin 1")
	require.ErrorIs(t, err, common.ErrInvalidUnpin)
}

func TestInspector_RunConsole(t *testing.T) {
	ins, _, _ := newTestInspector(t, 2)
	var out bytes.Buffer

	in := script("new", "", "write 1 hello", "read 1", "bogus", "exit", "new")
	require.NoError(t, ins.RunConsole(in, &out))

	require.Equal(t, "page(1) pinned\nok\nhello\nerror: bad request: unknown command \"bogus\"\n", out.String())
	require.Equal(t, []string{"new"}, in.lines, "input after exit is not consumed")
}

func TestInspector_RunConsoleInterrupt(t *testing.T) {
	ins, _, _ := newTestInspector(t, 2)
	var out bytes.Buffer

	in := &scriptedReader{
		lines: []string{"half typed", "", "new"},
		errs:  []error{readline.ErrInterrupt, readline.ErrInterrupt, nil},
	}
	require.NoError(t, ins.RunConsole(in, &out))
	require.Empty(t, out.String())
	require.Equal(t, []string{"new"}, in.lines)

	failing := &scriptedReader{lines: []string{""}, errs: []error{errors.New("tty gone")}}
	require.Error(t, ins.RunConsole(failing, &out))
}
