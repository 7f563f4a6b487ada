package api

import (
	"bytes"
	"encoding/json"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pyhub-apps/pdfviewer-golang/internal/logging"
	"github.com/pyhub-apps/pdfviewer-golang/internal/pdftest"
	"github.com/pyhub-apps/pdfviewer-golang/internal/storage"
	"github.com/pyhub-apps/pdfviewer-golang/pkg/engine"
	"github.com/pyhub-apps/pdfviewer-golang/pkg/viewer"
)

type testServer struct {
	*httptest.Server
	viewer *viewer.Controller
}

func newTestServer(t *testing.T, maxUpload int64) *testServer {
	t.Helper()
	cfg := engine.DefaultConfig()
	cfg.Validation = engine.ValidationOff
	e, err := engine.New(cfg, logging.Discard())
	require.NoError(t, err)

	archive, err := storage.NewLocalAdapter(t.TempDir())
	require.NoError(t, err)

	c := viewer.New(e, archive, logging.Discard())
	mux := http.NewServeMux()
	NewHandler(c, maxUpload, logging.Discard()).Routes(mux)

	srv := httptest.NewServer(LogRequests(mux, logging.Discard()))
	t.Cleanup(func() {
		srv.Close()
		c.Close()
	})
	return &testServer{Server: srv, viewer: c}
}

func sampleDocument() []byte {
	return pdftest.Build(pdftest.Document{
		Pages: []pdftest.Page{
			{
				Lines:  []string{"Hello world"},
				Images: []pdftest.Image{{Width: 2, Height: 2, X: 100, Y: 100, W: 50, H: 50}},
			},
			{Lines: []string{"Goodbye"}},
		},
		Info: map[string]string{"Title": "Sample", "Author": "Tester"},
		Outline: []pdftest.Bookmark{
			{Title: "Start", Page: 1},
			{Title: "End", Page: 2, Children: []pdftest.Bookmark{{Title: "Inner", Page: 2}}},
		},
	})
}

func uploadBody(t *testing.T, filename, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func (s *testServer) upload(t *testing.T, filename, contentType string, data []byte) *http.Response {
	t.Helper()
	body, ct := uploadBody(t, filename, contentType, data)
	resp, err := http.Post(s.URL+"/api/v1/document", ct, body)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (s *testServer) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(s.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (s *testServer) action(t *testing.T, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(s.URL+"/api/v1/state/actions", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestNoDocumentLoaded(t *testing.T) {
	srv := newTestServer(t, 0)

	for _, path := range []string{
		"/api/v1/document/metadata",
		"/api/v1/document/text",
		"/api/v1/document/outline",
		"/api/v1/document/images",
		"/api/v1/document/render",
		"/api/v1/document/file",
	} {
		t.Run(path, func(t *testing.T) {
			resp := srv.get(t, path)
			assert.Equal(t, http.StatusNotFound, resp.StatusCode)
			assert.Equal(t, "no document loaded", decode(t, resp)["error"])
		})
	}
}

func TestUploadDocument(t *testing.T) {
	srv := newTestServer(t, 0)

	resp := srv.upload(t, "sample.pdf", "application/pdf", sampleDocument())
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decode(t, resp)
	assert.Equal(t, "sample.pdf", body["name"])
	assert.Equal(t, float64(2), body["page_count"])
	assert.NotEmpty(t, body["id"])

	state := body["state"].(map[string]any)
	assert.Equal(t, true, state["loaded"])
	assert.Equal(t, float64(1), state["page"])
	assert.Equal(t, true, state["can_next"])
	assert.Equal(t, false, state["can_prev"])
}

func TestUploadContentTypeFromExtension(t *testing.T) {
	srv := newTestServer(t, 0)
	resp := srv.upload(t, "sample.pdf", "", sampleDocument())
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestUploadRejected(t *testing.T) {
	srv := newTestServer(t, 0)
	require.Equal(t, http.StatusCreated, srv.upload(t, "sample.pdf", "application/pdf", sampleDocument()).StatusCode)
	before := srv.viewer.State()

	resp := srv.upload(t, "notes.txt", "text/plain", []byte("plain text"))
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
	assert.Equal(t, before, srv.viewer.State())

	// the previous document is still served
	assert.Equal(t, http.StatusOK, srv.get(t, "/api/v1/document/metadata").StatusCode)
}

func TestUploadMalformed(t *testing.T) {
	srv := newTestServer(t, 0)

	resp := srv.upload(t, "broken.pdf", "application/pdf", []byte("%PDF-1.4 not really"))
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, decode(t, resp)["error"], "broken.pdf")

	state := decode(t, srv.get(t, "/api/v1/state"))
	assert.Equal(t, false, state["loaded"])
	assert.NotEmpty(t, state["load_error"])
}

func TestUploadBadRequests(t *testing.T) {
	srv := newTestServer(t, 0)

	resp, err := http.Post(srv.URL+"/api/v1/document", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("title", "no file"))
	require.NoError(t, mw.Close())
	resp2, err := http.Post(srv.URL+"/api/v1/document", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp2.StatusCode)
}

func TestUploadTooLarge(t *testing.T) {
	srv := newTestServer(t, 1024)
	data := append(sampleDocument(), bytes.Repeat([]byte(" "), 4096)...)

	resp := srv.upload(t, "big.pdf", "application/pdf", data)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestDocumentEndpoints(t *testing.T) {
	srv := newTestServer(t, 0)
	data := sampleDocument()
	require.Equal(t, http.StatusCreated, srv.upload(t, "sample.pdf", "application/pdf", data).StatusCode)

	t.Run("metadata", func(t *testing.T) {
		body := decode(t, srv.get(t, "/api/v1/document/metadata"))
		rows := body["rows"].([]any)
		assert.Equal(t, map[string]any{"key": "Title", "value": "Sample"}, rows[0])
		assert.Equal(t, map[string]any{"key": "Author", "value": "Tester"}, rows[1])
		assert.Equal(t, map[string]any{"key": "Subject", "value": "N/A"}, rows[2])
		assert.Equal(t, map[string]any{"key": "Page Count", "value": "2"}, rows[9])
	})

	t.Run("full text", func(t *testing.T) {
		body := decode(t, srv.get(t, "/api/v1/document/text"))
		assert.Equal(t, "Hello world\n\nGoodbye", body["text"])
		assert.Equal(t, float64(2), body["page_count"])
	})

	t.Run("page text", func(t *testing.T) {
		body := decode(t, srv.get(t, "/api/v1/document/text?page=2"))
		assert.Equal(t, "Goodbye", body["text"])
		assert.Equal(t, float64(2), body["page"])
		assert.Len(t, body["items"], 1)

		assert.Equal(t, http.StatusNotFound, srv.get(t, "/api/v1/document/text?page=3").StatusCode)
		assert.Equal(t, http.StatusBadRequest, srv.get(t, "/api/v1/document/text?page=two").StatusCode)
	})

	t.Run("outline", func(t *testing.T) {
		body := decode(t, srv.get(t, "/api/v1/document/outline"))
		assert.Equal(t, true, body["available"])
		assert.Equal(t, float64(3), body["count"])
		items := body["items"].([]any)
		require.Len(t, items, 2)
		first := items[0].(map[string]any)
		assert.Equal(t, "Start", first["title"])
		assert.Equal(t, map[string]any{"page": float64(1)}, first["dest"])
	})

	t.Run("images", func(t *testing.T) {
		body := decode(t, srv.get(t, "/api/v1/document/images"))
		assert.Equal(t, true, body["available"])
		assert.Equal(t, float64(1), body["count"])
		img := body["images"].([]any)[0].(map[string]any)
		assert.Equal(t, float64(1), img["page_number"])
		assert.Equal(t, float64(0), img["index"])
	})

	t.Run("render", func(t *testing.T) {
		resp := srv.get(t, "/api/v1/document/render?scale=0.5")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
		img, err := png.Decode(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, 306, img.Bounds().Dx())
		assert.Equal(t, 396, img.Bounds().Dy())

		assert.Equal(t, http.StatusNotFound, srv.get(t, "/api/v1/document/render?page=9").StatusCode)
		for _, scale := range []string{"0", "-1", "10", "NaN", "nan", "Inf", "-Inf", "abc"} {
			assert.Equal(t, http.StatusBadRequest, srv.get(t, "/api/v1/document/render?scale="+scale).StatusCode, "scale=%s", scale)
		}
		assert.Equal(t, http.StatusBadRequest, srv.get(t, "/api/v1/document/render?page=x").StatusCode)
	})

	t.Run("render follows view state", func(t *testing.T) {
		require.Equal(t, http.StatusOK, srv.action(t, `{"type":"zoom_out"}`).StatusCode)
		resp := srv.get(t, "/api/v1/document/render")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		img, err := png.Decode(resp.Body)
		require.NoError(t, err)
		// 612x792 at 0.8
		assert.Equal(t, 490, img.Bounds().Dx())
		assert.Equal(t, 634, img.Bounds().Dy())
	})

	t.Run("file", func(t *testing.T) {
		resp := srv.get(t, "/api/v1/document/file")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
		got, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, data, got)
	})
}

func TestStateActions(t *testing.T) {
	srv := newTestServer(t, 0)

	state := decode(t, srv.get(t, "/api/v1/state"))
	assert.Equal(t, "viewer", state["tab"])
	assert.Equal(t, float64(1), state["scale"])
	assert.Equal(t, false, state["can_next"])

	require.Equal(t, http.StatusCreated, srv.upload(t, "sample.pdf", "application/pdf", sampleDocument()).StatusCode)

	resp := srv.action(t, `{"type":"next_page"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	state = decode(t, resp)
	assert.Equal(t, float64(2), state["page"])
	assert.Equal(t, false, state["can_next"])
	assert.Equal(t, true, state["can_prev"])

	state = decode(t, srv.action(t, `{"type":"select_tab","tab":"images"}`))
	assert.Equal(t, "images", state["tab"])

	state = decode(t, srv.action(t, `{"type":"go_to_page","page":1}`))
	assert.Equal(t, float64(1), state["page"])

	assert.Equal(t, http.StatusBadRequest, srv.action(t, `{"type":"select_tab","tab":"settings"}`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, srv.action(t, `{"type":"load_succeeded"}`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, srv.action(t, `not json`).StatusCode)
}
