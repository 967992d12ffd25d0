package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docxpress/internal/convert"
	"github.com/docxpress/internal/database"
	"github.com/docxpress/internal/highlight"
	"github.com/docxpress/internal/logger"
	"github.com/docxpress/internal/ooxml"
	"github.com/docxpress/internal/ooxml/ooxmltest"
	"github.com/docxpress/internal/render"
	"github.com/docxpress/internal/templates"
)

const testMaxBytes = 1 << 20

type memoryHistory struct {
	mu      sync.Mutex
	entries []database.Entry
}

func (m *memoryHistory) Record(_ context.Context, e database.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *memoryHistory) last(t *testing.T) database.Entry {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.entries)
	return m.entries[len(m.entries)-1]
}

func newDocxServer(t *testing.T) (http.Handler, *memoryHistory) {
	t.Helper()
	hist := &memoryHistory{}
	h := NewDocxHandler(highlight.NewService(nil), hist, testMaxBytes)
	return NewDocxMux(DocxDeps{Docx: h}), hist
}

func multipartRequest(t *testing.T, path, filename string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if filename != "" {
		fw, err := mw.CreateFormFile(FormField, filename)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	} else {
		require.NoError(t, mw.WriteField("other", "value"))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func detailOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body.Detail
}

func threeParagraphDocx(t *testing.T) []byte {
	return ooxmltest.Package(t, ooxmltest.Document(
		ooxmltest.Paragraph(ooxmltest.Run("a"), ooxmltest.Run("b"), ooxmltest.HighlightedRun("important", "yellow")),
		ooxmltest.Paragraph(ooxmltest.Run("plain")),
		ooxmltest.Paragraph(ooxmltest.HighlightedRun("note", "cyan"), ooxmltest.Run("tail")),
	))
}

func TestSubmitDocx_ExtractsHighlights(t *testing.T) {
	h, hist := newDocxServer(t)

	rec := serve(h, multipartRequest(t, "/submit-docx", "Report.DOCX", threeParagraphDocx(t)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res highlight.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, res.Success)
	assert.Equal(t, "Report.DOCX", res.Filename)
	assert.Equal(t, 2, res.HighlightedTextCount)
	assert.Equal(t, []highlight.Record{
		{Text: "important", HighlightColor: "yellow", ParagraphIndex: 0, RunIndex: 2},
		{Text: "note", HighlightColor: "cyan", ParagraphIndex: 2, RunIndex: 0},
	}, res.HighlightedTexts)
	assert.False(t, res.ProcessedAt.IsZero())

	e := hist.last(t)
	assert.Equal(t, database.OpExtract, e.Operation)
	assert.Equal(t, http.StatusOK, e.Status)
	assert.Equal(t, "Report.DOCX", e.Filename)
	assert.NotEmpty(t, e.RequestID)
}

func TestSubmitDocx_Xlsx(t *testing.T) {
	h, _ := newDocxServer(t)

	rec := serve(h, multipartRequest(t, "/submit-docx?format=xlsx", "report.docx", threeParagraphDocx(t)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=report_highlights.xlsx", rec.Header().Get("Content-Disposition"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")))
}

func TestSubmitDocx_ValidationErrors(t *testing.T) {
	h, hist := newDocxServer(t)

	cases := []struct {
		name   string
		req    *http.Request
		status int
		detail string
	}{
		{"no file", multipartRequest(t, "/submit-docx", "", nil), http.StatusBadRequest, "No file uploaded"},
		{"not multipart", httptest.NewRequest(http.MethodPost, "/submit-docx", strings.NewReader("x")), http.StatusBadRequest, "No file uploaded"},
		{"wrong extension", multipartRequest(t, "/submit-docx", "notes.txt", []byte("x")), http.StatusBadRequest, "File must be a DOCX document"},
		{"empty", multipartRequest(t, "/submit-docx", "empty.docx", nil), http.StatusBadRequest, "Empty file uploaded"},
		{"not a zip", multipartRequest(t, "/submit-docx", "fake.docx", []byte("hello")), http.StatusBadRequest, "Invalid DOCX file format"},
		{"too large", multipartRequest(t, "/submit-docx", "big.docx", make([]byte, testMaxBytes+1)), http.StatusRequestEntityTooLarge, "File exceeds the 1048576 byte upload limit"},
		{"bad format", multipartRequest(t, "/submit-docx?format=pdf", "a.docx", []byte("x")), http.StatusBadRequest, `Unsupported format "pdf", expected json or xlsx`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(h, tc.req)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.detail, detailOf(t, rec))
			assert.Equal(t, tc.status, hist.last(t).Status)
		})
	}
}

func TestDocxRoutes_MethodNotAllowed(t *testing.T) {
	h, _ := newDocxServer(t)
	for _, path := range []string{"/submit-docx", "/convert-xml", "/convert-docx", "/json-to-xml-file"} {
		rec := serve(h, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, path)
		assert.Equal(t, "Method not allowed", detailOf(t, rec))
	}
}

func TestConvertXMLAndBack(t *testing.T) {
	h, _ := newDocxServer(t)
	docXML := ooxmltest.Document(ooxmltest.Paragraph(ooxmltest.Run("Round "), ooxmltest.HighlightedRun("trip", "green")))

	rec := serve(h, multipartRequest(t, "/convert-xml", "doc.docx", ooxmltest.Package(t, docXML)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/xml", rec.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=doc.xml", rec.Header().Get("Content-Disposition"))
	assert.Equal(t, docXML, rec.Body.String())

	rec = serve(h, multipartRequest(t, "/convert-docx", "doc.xml", rec.Body.Bytes()))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, ooxml.ContentTypeDocx, rec.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=doc.docx", rec.Header().Get("Content-Disposition"))

	xml, err := convert.DocxToXML(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, docXML, string(xml))
}

func TestConvertDocx_Errors(t *testing.T) {
	h, _ := newDocxServer(t)

	rec := serve(h, multipartRequest(t, "/convert-docx", "doc.docx", []byte("<x/>")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "File must be an XML document", detailOf(t, rec))

	rec = serve(h, multipartRequest(t, "/convert-docx", "doc.xml", []byte{0xff, 0xfe}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid XML file encoding", detailOf(t, rec))

	rec = serve(h, multipartRequest(t, "/convert-docx", "doc.xml", []byte("<w:document")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, detailOf(t, rec), "Invalid XML format")
}

func TestJSONToXMLFile(t *testing.T) {
	h, hist := newDocxServer(t)

	req := httptest.NewRequest(http.MethodPost, "/json-to-xml-file", strings.NewReader(`{"name":"Jane","tags":["a"]}`))
	rec := serve(h, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "attachment; filename=output.xml", rec.Header().Get("Content-Disposition"))
	assert.Equal(t, `<?xml version="1.0" encoding="UTF-8" ?><root><name>Jane</name><tags><item>a</item></tags></root>`, rec.Body.String())
	assert.Equal(t, database.OpJSONToXML, hist.last(t).Operation)

	rec = serve(h, httptest.NewRequest(http.MethodPost, "/json-to-xml-file", strings.NewReader(`{"name":`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, detailOf(t, rec), "Invalid JSON")
}

func TestHealthAndInfo(t *testing.T) {
	h, _ := newDocxServer(t)

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","message":"DOCX Processing API is running"}`, rec.Body.String())

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	var info InfoResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, DocxServiceName, info.Message)
	assert.Equal(t, Version, info.Version)
	assert.Contains(t, info.Endpoints, "/submit-docx")

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHistoryEndpoint(t *testing.T) {
	store, err := database.OpenHistory(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer store.Close()

	h := NewDocxMux(DocxDeps{
		Docx:    NewDocxHandler(highlight.NewService(nil), store, testMaxBytes),
		History: store,
	})

	serve(h, multipartRequest(t, "/submit-docx", "a.docx", threeParagraphDocx(t)))
	serve(h, multipartRequest(t, "/convert-xml", "b.txt", []byte("x")))

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/history?limit=10", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp HistoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 2, resp.Count)
	assert.Equal(t, database.OpConvertXML, resp.Entries[0].Operation)
	assert.Equal(t, http.StatusBadRequest, resp.Entries[0].Status)
	assert.Equal(t, "File must be a DOCX document", resp.Entries[0].Detail)

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/history?operation=submit-docx", nil))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "a.docx", resp.Entries[0].Filename)

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/history?limit=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHistoryEndpoint_Disabled(t *testing.T) {
	h, _ := newDocxServer(t)
	rec := serve(h, httptest.NewRequest(http.MethodGet, "/history", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "History is disabled", detailOf(t, rec))
}

func newRenderServer(t *testing.T) (http.Handler, *memoryHistory) {
	t.Helper()
	dir := t.TempDir()
	tpl := ooxmltest.Package(t, ooxmltest.Document(ooxmltest.Paragraph(ooxmltest.Run("{{client_name}}"))))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "template.docx"), tpl, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "letter.docx"), tpl, 0o644))

	dirStore, err := templates.NewDirStore(dir)
	require.NoError(t, err)
	store, err := templates.NewCachedStore(dirStore, 4)
	require.NoError(t, err)

	hist := &memoryHistory{}
	renderer := render.New(store, render.Options{DefaultTemplate: "template.docx", Missing: render.MissingKeep})
	h := NewRenderHandler(renderer, store, hist, testMaxBytes, "template.docx")
	return NewRenderMux(RenderDeps{Render: h}), hist
}

func TestGenerateDocx(t *testing.T) {
	h, hist := newRenderServer(t)

	for _, path := range []string{"/generate-docx/", "/generate-docx"} {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"data": {"client_name": "Jane Doe"}}`))
		rec := serve(h, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, ooxml.ContentTypeDocx, rec.Header().Get("Content-Type"))
		assert.Equal(t, "attachment; filename=template_rendered.docx", rec.Header().Get("Content-Disposition"))
		assert.Empty(t, rec.Header().Values(UnresolvedHeader))

		xml, err := convert.DocxToXML(rec.Body.Bytes())
		require.NoError(t, err)
		body, err := ooxml.Parse(xml)
		require.NoError(t, err)
		assert.Equal(t, "Jane Doe", body.Text())
		assert.NotContains(t, string(xml), "{{")
	}

	e := hist.last(t)
	assert.Equal(t, database.OpRender, e.Operation)
	assert.Equal(t, "template.docx", e.Filename)
}

func TestGenerateDocx_NamedTemplateAndUnresolved(t *testing.T) {
	h, _ := newRenderServer(t)

	req := httptest.NewRequest(http.MethodPost, "/generate-docx/", strings.NewReader(`{"template": "letter", "data": {}}`))
	rec := serve(h, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "attachment; filename=letter_rendered.docx", rec.Header().Get("Content-Disposition"))
	assert.Equal(t, []string{"client_name"}, rec.Header().Values(UnresolvedHeader))
}

func TestGenerateDocx_Errors(t *testing.T) {
	h, hist := newRenderServer(t)

	cases := []struct {
		body   string
		status int
	}{
		{`not json`, http.StatusBadRequest},
		{`{"data": [1]}`, http.StatusBadRequest},
		{`{"template": "missing.docx", "data": {}}`, http.StatusNotFound},
		{`{"template": "../etc/passwd", "data": {}}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		rec := serve(h, httptest.NewRequest(http.MethodPost, "/generate-docx/", strings.NewReader(tc.body)))
		assert.Equal(t, tc.status, rec.Code, tc.body)
		assert.NotEmpty(t, detailOf(t, rec))
		assert.Equal(t, tc.status, hist.last(t).Status)
	}

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/generate-docx/", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestTemplatesEndpoint(t *testing.T) {
	h, _ := newRenderServer(t)

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/templates", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"default":"template.docx","templates":["letter.docx","template.docx"]}`, rec.Body.String())

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.JSONEq(t, `{"status":"ok","message":"DOCX Template API is running"}`, rec.Body.String())
}

func TestLogStream_SSE(t *testing.T) {
	h, _ := newDocxServer(t)
	srv := httptest.NewServer(h)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/logs/stream", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	line, err := bufio.NewReader(resp.Body).ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "data: Connected to log stream\n", line)
}

func TestLogSocket(t *testing.T) {
	h, _ := newDocxServer(t)
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/logs", nil)
	require.NoError(t, err)
	defer conn.Close()

	const marker = "log-socket-test-marker"
	logger.Printf("%s", marker)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)
		if strings.Contains(string(msg), marker) {
			assert.Contains(t, string(msg), "[INFO]")
			return
		}
	}
}

func TestGenerateDocx_BodyTooLarge(t *testing.T) {
	h, hist := newRenderServer(t)

	body := `{"data": {"client_name": "` + strings.Repeat("x", testMaxBytes) + `"}}`
	rec := serve(h, httptest.NewRequest(http.MethodPost, "/generate-docx/", strings.NewReader(body)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "File exceeds the 1048576 byte upload limit", detailOf(t, rec))
	assert.Equal(t, http.StatusRequestEntityTooLarge, hist.last(t).Status)
}

// readUntil reads SSE lines until one contains want.
func readUntil(t *testing.T, r *bufio.Reader, want string) string {
	t.Helper()
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err, "waiting for %q", want)
		if strings.Contains(line, want) {
			return line
		}
	}
}

func TestLogStream_OutlivesWriteTimeout(t *testing.T) {
	h, _ := newDocxServer(t)
	srv := httptest.NewUnstartedServer(h)
	srv.Config.WriteTimeout = 200 * time.Millisecond
	srv.Start()
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/logs/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	r := bufio.NewReader(resp.Body)
	readUntil(t, r, "Connected to log stream")

	time.Sleep(400 * time.Millisecond)
	const marker = "log-stream-after-write-timeout"
	logger.Printf("%s", marker)
	assert.Contains(t, readUntil(t, r, marker), "[INFO]")
}

func TestLogStream_EndsWhenLoggerReplaced(t *testing.T) {
	h, _ := newDocxServer(t)
	srv := httptest.NewServer(h)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/logs/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	r := bufio.NewReader(resp.Body)
	readUntil(t, r, "Connected to log stream")

	_, err = logger.Init("", logger.LevelInfo)
	require.NoError(t, err)
	readUntil(t, r, "data: Log stream closed")
}
