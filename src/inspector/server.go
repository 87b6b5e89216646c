package inspector

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bufferpool-golang/src/common"
)

// Handler serves every command under its own path, e.g. GET /unpin?page=3&dirty=true,
// plus the metrics in gatherer under /metrics.
func (i *Inspector) Handler(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	for _, command := range []string{"new", "fetch", "unpin", "flush", "delete", "flush-all", "write", "read", "snapshot"} {
		mux.HandleFunc("/"+command, i.serve(command))
	}
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return mux
}

func (i *Inspector) serve(command string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		req, err := requestFromQuery(command, r.URL.Query())
		if err != nil {
			writeError(w, err)
			return
		}
		resp, err := i.Handle(req)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func requestFromQuery(command string, query url.Values) (Request, error) {
	req := Request{Command: command}
	switch command {
	case "new", "flush-all", "snapshot":
		return req, nil
	}

	page := query.Get("page")
	if page == "" {
		return Request{}, fmt.Errorf("%w: missing page parameter", errBadRequest)
	}
	pageId, err := parsePageId(page)
	if err != nil {
		return Request{}, err
	}
	req.PageId = pageId

	switch command {
	case "unpin":
		if dirty := query.Get("dirty"); dirty != "" {
			if req.Dirty, err = parseDirty(dirty); err != nil {
				return Request{}, err
			}
		}
	case "write":
		if !query.Has("text") {
			return Request{}, fmt.Errorf("%w: missing text parameter", errBadRequest)
		}
		req.Text = query.Get("text")
	}
	return req, nil
}

// StatusCode maps a pool error to the HTTP status reported for it.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, common.ErrInvalidPageId):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrPageNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrPagePinned),
		errors.Is(err, common.ErrPoolExhausted),
		errors.Is(err, common.ErrInvalidUnpin):
		return http.StatusConflict
	case errors.Is(err, common.ErrOutOfStorage):
		return http.StatusInsufficientStorage
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, StatusCode(err), map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
