package inspector

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bufferpool-golang/src/common"
)

func get(t *testing.T, server *httptest.Server, path string) (int, []byte) {
	t.Helper()
	resp, err := http.Get(server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func TestServer(t *testing.T) {
	ins, _, reg := newTestInspector(t, 2)
	server := httptest.NewServer(ins.Handler(reg))
	defer server.Close()

	status, body := get(t, server, "/new")
	require.Equal(t, http.StatusOK, status)
	var resp Response
	require.NoError(t, json.Unmarshal(body, &resp))
	require.Equal(t, common.PageId(1), resp.PageId)
	require.Equal(t, map[common.PageId]int{1: 0}, resp.Snapshot.PageTable)

	status, body = get(t, server, "/unpin?page=1&dirty=true")
	require.Equal(t, http.StatusOK, status)
	resp = Response{}
	require.NoError(t, json.Unmarshal(body, &resp))
	require.Equal(t, []common.PageId{1}, resp.Snapshot.DirtyPages)

	status, _ = get(t, server, "/write?page=1&text=hello%20there")
	require.Equal(t, http.StatusOK, status)
	status, body = get(t, server, "/read?page=1")
	require.Equal(t, http.StatusOK, status)
	resp = Response{}
	require.NoError(t, json.Unmarshal(body, &resp))
	require.Equal(t, "hello there", resp.Data)

	status, _ = get(t, server, "/snapshot")
	require.Equal(t, http.StatusOK, status)
	status, _ = get(t, server, "/flush-all")
	require.Equal(t, http.StatusOK, status)

	status, body = get(t, server, "/metrics")
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, string(body), `bufferpool_hits_total{pool="inspector"}`)
}

func TestServer_Errors(t *testing.T) {
	ins, dm, reg := newTestInspector(t, 2)
	server := httptest.NewServer(ins.Handler(reg))
	defer server.Close()

	cases := []struct {
		path   string
		status int
	}{
		{"/fetch", http.StatusBadRequest},
		{"/fetch?page=abc", http.StatusBadRequest},
		{"/unpin?page=1&dirty=maybe", http.StatusBadRequest},
		{"/write?page=1", http.StatusBadRequest},
		{"/flush?page=9", http.StatusNotFound},
		{"/delete?page=9", http.StatusNotFound},
		{"/unpin?page=9", http.StatusConflict},
		{"/new", http.StatusOK},
		{"/delete?page=1", http.StatusConflict},
		{"/new", http.StatusOK},
		{"/new", http.StatusConflict},
		{"/fetch?page=42", http.StatusConflict},
	}
	for _, c := range cases {
		status, body := get(t, server, c.path)
		assert.Equal(t, c.status, status, c.path)
		if status != http.StatusOK {
			var payload map[string]string
			require.NoError(t, json.Unmarshal(body, &payload), c.path)
			assert.NotEmpty(t, payload["error"], c.path)
		}
	}

	dm.FailWrites(errors.New("disk unplugged"))
	status, _ := get(t, server, "/flush?page=1")
	assert.Equal(t, http.StatusInternalServerError, status)

	resp, err := http.Post(server.URL+"/new", "text/plain", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, StatusCode(common.ErrPageNotFound))
	assert.Equal(t, http.StatusConflict, StatusCode(common.ErrPoolExhausted))
	assert.Equal(t, http.StatusInsufficientStorage, StatusCode(common.ErrOutOfStorage))
	assert.Equal(t, http.StatusBadRequest, StatusCode(common.ErrInvalidPageId))
	assert.Equal(t, http.StatusInternalServerError, StatusCode(common.ErrIO))
}
