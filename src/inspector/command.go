package inspector

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"bufferpool-golang/src/buffer"
	"bufferpool-golang/src/common"
)

var errBadRequest = errors.New("bad request")

// Request is one pool operation issued from the console or over HTTP.
type Request struct {
	Command string
	PageId  common.PageId
	Dirty   bool
	Text    string
}

type Response struct {
	PageId   common.PageId    `json:"page_id,omitempty"`
	Data     string           `json:"data,omitempty"`
	Snapshot *buffer.Snapshot `json:"snapshot,omitempty"`
}

// Inspector drives a pool by hand. Pages returned by "new" and "fetch" stay
// pinned until an explicit "unpin"; "read" and "write" pin and unpin on
// their own.
type Inspector struct {
	bpm    *buffer.BufferPoolManager
	logger *log.Entry
}

func New(bpm *buffer.BufferPoolManager, logger *log.Logger) *Inspector {
	return &Inspector{
		bpm:    bpm,
		logger: logger.WithField("pool", bpm.Id()),
	}
}

const usage = `commands:
  new                   allocate a page and pin it
  fetch <page>          pin a page, reading it from disk if needed
  unpin <page> [dirty]  release one pin
  flush <page>          write a resident page to disk
  delete <page>         drop an unpinned page
  flush-all             write every dirty page
  write <page> <text>   store text at the start of a page
  read <page>           show the text stored in a page
  snapshot              show the pool state`

// ParseRequest parses a console line such as "unpin 3 dirty".
func ParseRequest(line string) (Request, error) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return Request{}, fmt.Errorf("%w: empty command", errBadRequest)
	}
	req := Request{Command: strings.ToLower(parts[0])}
	args := parts[1:]

	switch req.Command {
	case "new", "flush-all", "snapshot":
		if len(args) != 0 {
			return Request{}, fmt.Errorf("%w: %s takes no arguments", errBadRequest, req.Command)
		}
		return req, nil
	case "fetch", "flush", "delete", "read":
		if len(args) != 1 {
			return Request{}, fmt.Errorf("%w: %s requires a page id", errBadRequest, req.Command)
		}
	case "unpin":
		if len(args) < 1 || len(args) > 2 {
			return Request{}, fmt.Errorf("%w: unpin requires a page id and an optional dirty flag", errBadRequest)
		}
		if len(args) == 2 {
			dirty, err := parseDirty(args[1])
			if err != nil {
				return Request{}, err
			}
			req.Dirty = dirty
		}
	case "write":
		if len(args) < 2 {
			return Request{}, fmt.Errorf("%w: write requires a page id and text", errBadRequest)
		}
		req.Text = strings.Join(args[1:], " ")
	default:
		return Request{}, fmt.Errorf("%w: unknown command %q", errBadRequest, req.Command)
	}

	pageId, err := parsePageId(args[0])
	if err != nil {
		return Request{}, err
	}
	req.PageId = pageId
	return req, nil
}

func parsePageId(s string) (common.PageId, error) {
	id, err := strconv.ParseInt(s, 10, 32)
	if err != nil || id < 0 {
		return common.InvalidPageId, fmt.Errorf("%w: invalid page id %q", errBadRequest, s)
	}
	return common.PageId(id), nil
}

func parseDirty(s string) (bool, error) {
	if strings.EqualFold(s, "dirty") {
		return true, nil
	}
	dirty, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("%w: invalid dirty flag %q", errBadRequest, s)
	}
	return dirty, nil
}

// Handle runs req against the pool.
func (i *Inspector) Handle(req Request) (Response, error) {
	resp := Response{PageId: req.PageId}
	var err error

	switch req.Command {
	case "new":
		resp.PageId, _, err = i.bpm.NewPage()
	case "fetch":
		_, err = i.bpm.FetchPage(req.PageId)
	case "unpin":
		err = i.bpm.UnpinPage(req.PageId, req.Dirty)
	case "flush":
		err = i.bpm.FlushPage(req.PageId)
	case "delete":
		err = i.bpm.DeletePage(req.PageId)
	case "flush-all":
		err = i.bpm.FlushAll()
	case "write":
		err = i.write(req.PageId, req.Text)
	case "read":
		resp.Data, err = i.read(req.PageId)
	case "snapshot":
	default:
		err = fmt.Errorf("%w: unknown command %q", errBadRequest, req.Command)
	}
	if err != nil {
		i.logger.WithError(err).Debugf("Command %s failed.", req.Command)
		return Response{}, err
	}
	snap := i.bpm.Snapshot()
	resp.Snapshot = &snap
	return resp, nil
}

func (i *Inspector) write(pageId common.PageId, text string) error {
	if len(text) > common.PageSize {
		return fmt.Errorf("%w: %d bytes do not fit in a page", errBadRequest, len(text))
	}
	frame, err := i.bpm.FetchPage(pageId)
	if err != nil {
		return err
	}
	frame.Lock()
	data := frame.Data()
	n := copy(data, text)
	for j := n; j < len(data); j++ {
		data[j] = 0
	}
	frame.Unlock()
	return i.bpm.UnpinPage(pageId, true)
}

func (i *Inspector) read(pageId common.PageId) (string, error) {
	frame, err := i.bpm.FetchPage(pageId)
	if err != nil {
		return "", err
	}
	frame.RLock()
	data := frame.Data()
	if end := bytes.IndexByte(data, 0); end >= 0 {
		data = data[:end]
	}
	text := string(data)
	frame.RUnlock()
	return text, i.bpm.UnpinPage(pageId, false)
}
