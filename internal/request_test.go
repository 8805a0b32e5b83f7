package internal_test

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/subframe/internal"
)

func TestNewRequest(t *testing.T) {
	t.Parallel()

	t.Run("normalizes method and uri", func(t *testing.T) {
		t.Parallel()

		req := internal.NewRequest("get", "/blog/post/?page=2")
		require.Equal(t, http.MethodGet, req.Method())
		require.Equal(t, "/blog/post", req.URI())
		require.Equal(t, "page=2", req.RawQuery())

		require.Equal(t, "/", internal.NewRequest("GET", "").URI())
		require.Equal(t, "/", internal.NewRequest("GET", "///").URI())
		require.Equal(t, "/a/b", internal.NewRequest("GET", "a/b/").URI())
	})

	t.Run("headers are case-insensitive", func(t *testing.T) {
		t.Parallel()

		req := internal.NewRequest("GET", "/", internal.WithHeaders(map[string]string{
			"content-type": "text/html",
			"etag":         `"abc"`,
		}))
		require.Equal(t, "text/html", req.Header("Content-Type"))
		require.Equal(t, "text/html", req.Header("CONTENT-TYPE"))
		require.Equal(t, `"abc"`, req.Header("ETag"))
		require.Contains(t, req.Headers(), "ETag")
	})

	t.Run("server variables fold into headers", func(t *testing.T) {
		t.Parallel()

		req := internal.NewRequest("GET", "/", internal.WithServerParams(map[string]string{
			"HTTP_X_REQUESTED_WITH": "XMLHttpRequest",
			"CONTENT_TYPE":          "application/json",
			"REMOTE_ADDR":           "203.0.113.9",
		}))
		require.Equal(t, "XMLHttpRequest", req.Header("X-Requested-With"))
		require.True(t, req.IsXMLHttpRequest())
		require.Equal(t, "application/json", req.Header("Content-Type"))
		require.Equal(t, "203.0.113.9", req.Server("REMOTE_ADDR"))
	})

	t.Run("explicit headers win over server variables", func(t *testing.T) {
		t.Parallel()

		req := internal.NewRequest("GET", "/",
			internal.WithServerParams(map[string]string{"HTTP_ACCEPT": "text/html"}),
			internal.WithHeaders(map[string]string{"Accept": "application/json"}),
		)
		require.Equal(t, "application/json", req.Header("Accept"))
		require.True(t, req.AcceptsJSON())
	})

	t.Run("accessors return copies", func(t *testing.T) {
		t.Parallel()

		req := internal.NewRequest("POST", "/",
			internal.WithQuery(map[string]string{"q": "go"}),
			internal.WithPostBody(map[string]string{"name": "Ann"}),
			internal.WithCookies(map[string]string{"sid": "1"}),
		)

		q := req.QueryParams()
		q["q"] = "changed"
		require.Equal(t, "go", req.Query("q"))

		b := req.PostParams()
		b["name"] = "changed"
		require.Equal(t, "Ann", req.Post("name"))

		c := req.Cookies()
		delete(c, "sid")
		require.Equal(t, "1", req.Cookie("sid"))
	})
}

func TestRequestRemoteAddr(t *testing.T) {
	t.Parallel()

	server := map[string]string{"REMOTE_ADDR": "127.0.0.1"}

	t.Run("first public forwarded address", func(t *testing.T) {
		t.Parallel()

		req := internal.NewRequest("GET", "/",
			internal.WithServerParams(server),
			internal.WithHeaders(map[string]string{"X-Forwarded-For": "10.0.0.1, 192.168.1.4, 203.0.113.7, 198.51.100.2"}),
		)
		require.Equal(t, "203.0.113.7", req.RemoteAddr())
	})

	t.Run("falls back to peer address", func(t *testing.T) {
		t.Parallel()

		req := internal.NewRequest("GET", "/",
			internal.WithServerParams(server),
			internal.WithHeaders(map[string]string{"X-Forwarded-For": "10.1.1.1, 127.0.0.1"}),
		)
		require.Equal(t, "127.0.0.1", req.RemoteAddr())
	})

	t.Run("prefix heuristic skips every 192 address", func(t *testing.T) {
		t.Parallel()

		req := internal.NewRequest("GET", "/",
			internal.WithServerParams(server),
			internal.WithHeaders(map[string]string{"X-Forwarded-For": "192.0.2.1, 172.16.0.1"}),
		)
		require.Equal(t, "172.16.0.1", req.RemoteAddr())
	})
}

func TestRequestUploads(t *testing.T) {
	t.Parallel()

	t.Run("no-file descriptors are dropped", func(t *testing.T) {
		t.Parallel()

		req := internal.NewRequest("POST", "/upload",
			internal.WithPostBody(map[string]string{"title": "x"}),
			internal.WithUploadedFiles(map[string][]internal.UploadedFile{
				"avatar": {{Name: "", Error: internal.UploadErrNoFile}},
			}),
		)
		files, err := req.Files()
		require.NoError(t, err)
		require.Empty(t, files)
	})

	t.Run("validation is lazy", func(t *testing.T) {
		t.Parallel()

		req := internal.NewRequest("POST", "/upload",
			internal.WithUploadedFiles(map[string][]internal.UploadedFile{
				"doc": {{Name: "big.pdf", Size: 1 << 30, Error: internal.UploadErrSizeExceeded}},
			}),
		)
		require.Equal(t, "/upload", req.URI())

		_, err := req.File("doc")
		require.ErrorIs(t, err, internal.ErrSizeExceeded)

		var uerr *internal.UploadError
		require.ErrorAs(t, err, &uerr)
		require.Equal(t, "doc", uerr.Field)
		require.Equal(t, "big.pdf", uerr.File)
		require.Equal(t, http.StatusRequestEntityTooLarge, internal.StatusCode(err))
	})

	t.Run("upload error codes", func(t *testing.T) {
		t.Parallel()

		cases := map[internal.UploadErrorCode]struct {
			err    error
			status int
		}{
			internal.UploadErrPartial:   {internal.ErrPartialUpload, http.StatusBadRequest},
			internal.UploadErrNoTempDir: {internal.ErrNoTempDir, http.StatusInternalServerError},
			internal.UploadErrCantWrite: {internal.ErrWriteError, http.StatusInternalServerError},
			internal.UploadErrExtension: {internal.ErrExtensionBlocked, http.StatusInternalServerError},
			internal.UploadErrorCode(42): {internal.ErrUploadFailed, http.StatusInternalServerError},
		}
		for code, want := range cases {
			req := internal.NewRequest("POST", "/", internal.WithUploadedFiles(map[string][]internal.UploadedFile{
				"f": {{Name: "a.txt", Error: code}},
			}))
			err := req.Validate()
			require.ErrorIs(t, err, want.err)
			require.Equal(t, want.status, internal.StatusCode(err))
		}
	})

	t.Run("dropped body is payload too large", func(t *testing.T) {
		t.Parallel()

		req := internal.NewRequest("POST", "/upload", internal.WithServerParams(map[string]string{
			"CONTENT_LENGTH": "99999999",
		}))
		_, err := req.Files()
		require.ErrorIs(t, err, internal.ErrPayloadTooLarge)
		require.Equal(t, http.StatusRequestEntityTooLarge, internal.StatusCode(err))

		get := internal.NewRequest("GET", "/upload", internal.WithServerParams(map[string]string{
			"CONTENT_LENGTH": "99999999",
		}))
		require.NoError(t, get.Validate())
	})

	t.Run("literal descriptor opens temp path", func(t *testing.T) {
		t.Parallel()

		path := t.TempDir() + "/upload.txt"
		require.NoError(t, writeFile(path, "hello"))

		req := internal.NewRequest("POST", "/", internal.WithUploadedFiles(map[string][]internal.UploadedFile{
			"f": {{Name: "upload.txt", TempPath: path, Size: 5}},
		}))
		files, err := req.File("f")
		require.NoError(t, err)
		require.Len(t, files, 1)

		rc, err := files[0].Open()
		require.NoError(t, err)
		defer rc.Close()
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.Equal(t, "hello", string(data))
	})
}

func TestFromHTTP(t *testing.T) {
	t.Parallel()

	t.Run("form body, query, cookies and server", func(t *testing.T) {
		t.Parallel()

		form := url.Values{"name": {"Ann"}, "tags": {"a", "b"}}
		hr := httptest.NewRequest(http.MethodPost, "/contact/?ref=home", strings.NewReader(form.Encode()))
		hr.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		hr.Header.Set("X-Requested-With", "XMLHttpRequest")
		hr.AddCookie(&http.Cookie{Name: "sid", Value: "abc"})
		hr.RemoteAddr = "198.51.100.4:5555"

		req := internal.FromHTTP(hr)
		require.Equal(t, http.MethodPost, req.Method())
		require.Equal(t, "/contact", req.URI())
		require.Equal(t, "ref=home", req.RawQuery())
		require.Equal(t, "home", req.Query("ref"))
		require.Equal(t, "Ann", req.Post("name"))
		require.Equal(t, "a", req.Post("tags"))
		require.Equal(t, "abc", req.Cookie("sid"))
		require.Equal(t, "198.51.100.4", req.RemoteAddr())
		require.Equal(t, "XMLHttpRequest", req.Server("HTTP_X_REQUESTED_WITH"))
		require.True(t, req.IsXMLHttpRequest())
		require.NoError(t, req.Validate())
	})

	t.Run("multipart uploads", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		require.NoError(t, mw.WriteField("title", "report"))
		fw, err := mw.CreateFormFile("doc", "report.txt")
		require.NoError(t, err)
		_, err = fw.Write([]byte("contents"))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		hr := httptest.NewRequest(http.MethodPost, "/upload", &buf)
		hr.Header.Set("Content-Type", mw.FormDataContentType())

		req := internal.FromHTTP(hr)
		require.Equal(t, "report", req.Post("title"))

		files, err := req.File("doc")
		require.NoError(t, err)
		require.Len(t, files, 1)
		require.Equal(t, "report.txt", files[0].Name)
		require.Equal(t, int64(len("contents")), files[0].Size)

		rc, err := files[0].Open()
		require.NoError(t, err)
		defer rc.Close()
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.Equal(t, "contents", string(data))
	})

	t.Run("spooled uploads expose their temp path", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile("doc", "report.txt")
		require.NoError(t, err)
		_, err = fw.Write(bytes.Repeat([]byte("y"), 64))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		hr := httptest.NewRequest(http.MethodPost, "/upload", &buf)
		hr.Header.Set("Content-Type", mw.FormDataContentType())

		req := internal.FromHTTP(hr, internal.WithMemoryLimit(1))
		t.Cleanup(func() { _ = hr.MultipartForm.RemoveAll() })

		files, err := req.File("doc")
		require.NoError(t, err)
		require.Len(t, files, 1)
		require.NotEmpty(t, files[0].TempPath)

		data, err := os.ReadFile(files[0].TempPath)
		require.NoError(t, err)
		require.Len(t, data, 64)
	})

	t.Run("in-memory uploads have no temp path", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile("doc", "small.txt")
		require.NoError(t, err)
		_, err = fw.Write([]byte("tiny"))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		hr := httptest.NewRequest(http.MethodPost, "/upload", &buf)
		hr.Header.Set("Content-Type", mw.FormDataContentType())

		files, err := internal.FromHTTP(hr).File("doc")
		require.NoError(t, err)
		require.Len(t, files, 1)
		require.Empty(t, files[0].TempPath)
	})

	t.Run("file limit flags large files", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile("doc", "big.bin")
		require.NoError(t, err)
		_, err = fw.Write(bytes.Repeat([]byte("x"), 2048))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		hr := httptest.NewRequest(http.MethodPost, "/upload", &buf)
		hr.Header.Set("Content-Type", mw.FormDataContentType())

		req := internal.FromHTTP(hr, internal.WithFileLimit(1024))
		_, err = req.Files()
		require.ErrorIs(t, err, internal.ErrSizeExceeded)
	})

	t.Run("body over limit surfaces payload too large", func(t *testing.T) {
		t.Parallel()

		form := url.Values{"data": {strings.Repeat("x", 4096)}}
		hr := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(form.Encode()))
		hr.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		req := internal.FromHTTP(hr, internal.WithBodyLimit(512))
		require.Empty(t, req.PostParams())
		require.ErrorIs(t, req.Validate(), internal.ErrPayloadTooLarge)
	})

	t.Run("raw body is kept", func(t *testing.T) {
		t.Parallel()

		hr := httptest.NewRequest(http.MethodPost, "/api", strings.NewReader(`{"a":1}`))
		hr.Header.Set("Content-Type", "application/json")

		req := internal.FromHTTP(hr)
		require.JSONEq(t, `{"a":1}`, string(req.RawBody()))
		require.NoError(t, req.Validate())
	})
}

func TestRequestDerivedURIs(t *testing.T) {
	t.Parallel()

	t.Run("relative to base", func(t *testing.T) {
		t.Parallel()

		req := internal.NewRequest("GET", "/app/blog/post")
		require.Equal(t, "/blog/post", req.RelativeTo("/app").URI())
		require.Equal(t, "/blog/post", req.RelativeTo("app/").URI())
		require.Equal(t, "/", internal.NewRequest("GET", "/app").RelativeTo("/app").URI())
		require.Equal(t, "/application", internal.NewRequest("GET", "/application").RelativeTo("/app").URI())
		require.Equal(t, "/app/blog/post", req.URI())
	})

	t.Run("path info", func(t *testing.T) {
		t.Parallel()

		req := internal.NewRequest("GET", "/index.php/ignored", internal.WithServerParams(map[string]string{
			"PATH_INFO": "/blog/post/",
		}))
		require.Equal(t, "/blog/post", req.PathInfo().URI())

		orig := internal.NewRequest("GET", "/", internal.WithServerParams(map[string]string{
			"PATH_INFO":      "/a",
			"ORIG_PATH_INFO": "/b",
		}))
		require.Equal(t, "/b", orig.PathInfo().URI())

		require.Equal(t, "/", internal.NewRequest("GET", "/x").PathInfo().URI())
	})

	t.Run("with uri keeps other fields", func(t *testing.T) {
		t.Parallel()

		req := internal.NewRequest("GET", "/a?x=1", internal.WithCookies(map[string]string{"sid": "1"}))
		next := req.WithURI("/b/c?y=2")
		require.Equal(t, "/b/c", next.URI())
		require.Equal(t, "y=2", next.RawQuery())
		require.Equal(t, "1", next.Cookie("sid"))
		require.Equal(t, "/a", req.URI())
	})
}
