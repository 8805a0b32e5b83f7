package internal

import (
	"io"
	"maps"
	"net"
	"net/http"
	"slices"
	"strconv"
	"strings"
)

const (
	defaultMaxBodyBytes int64 = 32 << 20 // 32MB
	defaultMaxMemory    int64 = 8 << 20  // 8MB kept in memory before spilling to disk
)

// Request is an immutable snapshot of an incoming HTTP request.
// Every accessor returning a map returns a copy.
type Request struct {
	headers  map[string]string
	query    map[string]string
	body     map[string]string
	cookies  map[string]string
	files    map[string][]UploadedFile
	server   map[string]string
	method   string
	uri      string
	rawQuery string
	rawBody  []byte
}

// RequestOption populates a literal Request.
type RequestOption func(*Request)

// WithQuery sets the query parameters.
func WithQuery(q map[string]string) RequestOption {
	return func(r *Request) { r.query = maps.Clone(q) }
}

// WithPostBody sets the parsed body parameters.
func WithPostBody(b map[string]string) RequestOption {
	return func(r *Request) { r.body = maps.Clone(b) }
}

// WithCookies sets the request cookies.
func WithCookies(c map[string]string) RequestOption {
	return func(r *Request) { r.cookies = maps.Clone(c) }
}

// WithUploadedFiles sets the uploaded file descriptors.
// Descriptors reporting UploadErrNoFile are dropped.
func WithUploadedFiles(f map[string][]UploadedFile) RequestOption {
	return func(r *Request) { r.files = dropEmptyUploads(f) }
}

// WithServerParams sets CGI-style server metadata.
// HTTP_* keys and CONTENT_TYPE/CONTENT_LENGTH are also folded into the headers.
func WithServerParams(s map[string]string) RequestOption {
	return func(r *Request) { r.server = maps.Clone(s) }
}

// WithHeaders sets request headers. Names are canonicalized.
// They take precedence over headers derived from server metadata.
func WithHeaders(h map[string]string) RequestOption {
	return func(r *Request) {
		for k, v := range h {
			r.headers[CanonicalHeaderName(k)] = v
		}
	}
}

// WithRawBody sets the unparsed request body.
func WithRawBody(b []byte) RequestOption {
	return func(r *Request) { r.rawBody = slices.Clone(b) }
}

// NewRequest builds a Request from literal values.
// The method is upper-cased and the URI is normalized to "/" + trim(path, "/"),
// with the query string stripped and kept separately.
//
// Example:
//
//	req := subframe.NewRequest("GET", "/contact?page=3",
//	    subframe.WithQuery(map[string]string{"page": "3"}),
//	)
//	req.URI()         // "/contact"
//	req.Query("page") // "3"
func NewRequest(method, uri string, opts ...RequestOption) *Request {
	path, rawQuery, _ := strings.Cut(uri, "?")
	r := &Request{
		method:   strings.ToUpper(method),
		uri:      normalizeURI(path),
		rawQuery: rawQuery,
		headers:  make(map[string]string),
		query:    map[string]string{},
		body:     map[string]string{},
		cookies:  map[string]string{},
		files:    map[string][]UploadedFile{},
		server:   map[string]string{},
	}

	for _, opt := range opts {
		opt(r)
	}

	// Explicit headers win over those derived from server metadata.
	merged := headersFromServer(r.server)
	maps.Copy(merged, r.headers)
	r.headers = merged

	return r
}

// SourceOption configures how a Request is built from an *http.Request.
type SourceOption func(*sourceConfig)

type sourceConfig struct {
	maxBodyBytes int64
	maxFileBytes int64
	maxMemory    int64
}

// WithBodyLimit sets the maximum number of body bytes parsed.
// A larger body leaves the parsed body and files empty, which Request.Files
// reports as ErrPayloadTooLarge.
func WithBodyLimit(n int64) SourceOption {
	return func(c *sourceConfig) {
		if n > 0 {
			c.maxBodyBytes = n
		}
	}
}

// WithFileLimit flags uploaded files above n bytes with UploadErrSizeExceeded.
func WithFileLimit(n int64) SourceOption {
	return func(c *sourceConfig) {
		if n > 0 {
			c.maxFileBytes = n
		}
	}
}

// WithMemoryLimit sets how many bytes of uploaded file data are held in memory.
// Larger parts are spooled to temporary files and reported through TempPath.
func WithMemoryLimit(n int64) SourceOption {
	return func(c *sourceConfig) {
		if n > 0 {
			c.maxMemory = n
		}
	}
}

// FromHTTP builds a Request from a standard library request.
// Form and multipart bodies are parsed; the server map is filled with
// CGI-style variables (REMOTE_ADDR, REQUEST_URI, CONTENT_LENGTH, HTTP_*).
func FromHTTP(hr *http.Request, opts ...SourceOption) *Request {
	cfg := &sourceConfig{maxBodyBytes: defaultMaxBodyBytes, maxMemory: defaultMaxMemory}
	for _, opt := range opts {
		opt(cfg)
	}

	server := serverFromHTTP(hr)
	headers := make(map[string]string, len(hr.Header))
	for name, values := range hr.Header {
		headers[CanonicalHeaderName(name)] = strings.Join(values, ", ")
	}
	if hr.Host != "" {
		headers["Host"] = hr.Host
	}

	cookies := make(map[string]string)
	for _, c := range hr.Cookies() {
		cookies[c.Name] = c.Value
	}

	query := firstValues(hr.URL.Query())
	body, files, raw := parseBody(hr, cfg)

	return &Request{
		method:   strings.ToUpper(hr.Method),
		uri:      normalizeURI(hr.URL.Path),
		rawQuery: hr.URL.RawQuery,
		headers:  headers,
		query:    query,
		body:     body,
		cookies:  cookies,
		files:    dropEmptyUploads(files),
		server:   server,
		rawBody:  raw,
	}
}

// parseBody reads form-encoded, multipart, or raw bodies depending on the content type.
func parseBody(hr *http.Request, cfg *sourceConfig) (map[string]string, map[string][]UploadedFile, []byte) {
	body := map[string]string{}
	if hr.Body == nil || hr.Body == http.NoBody {
		return body, nil, nil
	}

	hr.Body = http.MaxBytesReader(nil, hr.Body, cfg.maxBodyBytes)
	ct := hr.Header.Get("Content-Type")

	switch {
	case strings.HasPrefix(ct, "multipart/form-data"):
		if err := hr.ParseMultipartForm(cfg.maxMemory); err != nil {
			return body, nil, nil
		}
		for k, v := range hr.MultipartForm.Value {
			if len(v) > 0 {
				body[k] = v[0]
			}
		}
		return body, uploadsFromMultipart(hr.MultipartForm, cfg.maxFileBytes), nil

	case strings.HasPrefix(ct, "application/x-www-form-urlencoded"):
		if err := hr.ParseForm(); err != nil {
			return body, nil, nil
		}
		return firstValues(hr.PostForm), nil, nil

	default:
		raw, err := io.ReadAll(hr.Body)
		if err != nil {
			return body, nil, nil
		}
		return body, nil, raw
	}
}

// serverFromHTTP derives the CGI-style metadata map.
func serverFromHTTP(hr *http.Request) map[string]string {
	s := map[string]string{
		"REQUEST_METHOD":  hr.Method,
		"REQUEST_URI":     hr.URL.RequestURI(),
		"QUERY_STRING":    hr.URL.RawQuery,
		"SERVER_PROTOCOL": hr.Proto,
		"HTTP_HOST":       hr.Host,
	}
	if host, port, err := net.SplitHostPort(hr.RemoteAddr); err == nil {
		s["REMOTE_ADDR"] = host
		s["REMOTE_PORT"] = port
	} else {
		s["REMOTE_ADDR"] = hr.RemoteAddr
	}
	if hr.ContentLength > 0 {
		s["CONTENT_LENGTH"] = strconv.FormatInt(hr.ContentLength, 10)
	}
	if ct := hr.Header.Get("Content-Type"); ct != "" {
		s["CONTENT_TYPE"] = ct
	}
	if hr.TLS != nil {
		s["HTTPS"] = "on"
	}
	for name, values := range hr.Header {
		key := "HTTP_" + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
		s[key] = strings.Join(values, ", ")
	}
	return s
}

// headersFromServer folds HTTP_* variables and the content headers into a header map.
func headersFromServer(server map[string]string) map[string]string {
	h := make(map[string]string)
	for k, v := range server {
		switch {
		case strings.HasPrefix(k, "HTTP_"):
			h[CanonicalHeaderName(strings.TrimPrefix(k, "HTTP_"))] = v
		case k == "CONTENT_TYPE" || k == "CONTENT_LENGTH":
			h[CanonicalHeaderName(k)] = v
		}
	}
	return h
}

func firstValues(v map[string][]string) map[string]string {
	out := make(map[string]string, len(v))
	for k, vals := range v {
		if len(vals) > 0 {
			out[k] = vals[0]
		}
	}
	return out
}

// normalizeURI returns "/" + trim(path, "/").
func normalizeURI(path string) string {
	return "/" + strings.Trim(path, "/")
}

// Method returns the upper-cased HTTP method.
func (r *Request) Method() string { return r.method }

// URI returns the normalized path without the query string.
func (r *Request) URI() string { return r.uri }

// RawQuery returns the query string as received, without the leading "?".
func (r *Request) RawQuery() string { return r.rawQuery }

// Header returns a header value. Lookup is case-insensitive.
func (r *Request) Header(name string) string {
	return r.headers[CanonicalHeaderName(name)]
}

// Headers returns all headers keyed by canonical name.
func (r *Request) Headers() map[string]string { return maps.Clone(r.headers) }

// Query returns a single query parameter.
func (r *Request) Query(name string) string { return r.query[name] }

// QueryParams returns all query parameters.
func (r *Request) QueryParams() map[string]string { return maps.Clone(r.query) }

// Post returns a single parsed body parameter.
func (r *Request) Post(name string) string { return r.body[name] }

// PostParams returns all parsed body parameters.
func (r *Request) PostParams() map[string]string { return maps.Clone(r.body) }

// Cookie returns a single cookie value.
func (r *Request) Cookie(name string) string { return r.cookies[name] }

// Cookies returns all cookies.
func (r *Request) Cookies() map[string]string { return maps.Clone(r.cookies) }

// Server returns a single server variable.
func (r *Request) Server(name string) string { return r.server[name] }

// ServerParams returns all server variables.
func (r *Request) ServerParams() map[string]string { return maps.Clone(r.server) }

// RawBody returns the unparsed body for content types that are not form encoded.
func (r *Request) RawBody() []byte { return slices.Clone(r.rawBody) }

// ContentLength returns the declared body length, or zero when unknown.
func (r *Request) ContentLength() int64 {
	v := r.server["CONTENT_LENGTH"]
	if v == "" {
		v = r.headers["Content-Length"]
	}
	n, _ := strconv.ParseInt(v, 10, 64)
	return n
}

// Validate reports upload failures. It returns ErrPayloadTooLarge when a POST
// declared a body that was not parsed, otherwise the first *UploadError in
// field name order.
func (r *Request) Validate() error {
	if r.method == http.MethodPost && r.ContentLength() > 0 && len(r.body) == 0 && len(r.files) == 0 && len(r.rawBody) == 0 {
		return ErrPayloadTooLarge
	}
	for _, field := range slices.Sorted(maps.Keys(r.files)) {
		for _, f := range r.files[field] {
			if f.Error != UploadOK {
				return newUploadError(field, f)
			}
		}
	}
	return nil
}

// Files validates and returns all uploaded files.
func (r *Request) Files() (map[string][]UploadedFile, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	out := make(map[string][]UploadedFile, len(r.files))
	for k, v := range r.files {
		out[k] = slices.Clone(v)
	}
	return out, nil
}

// File validates and returns the files uploaded under one field.
func (r *Request) File(field string) ([]UploadedFile, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return slices.Clone(r.files[field]), nil
}

// AcceptsJSON reports whether the Accept header mentions a JSON media type.
func (r *Request) AcceptsJSON() bool {
	return strings.Contains(r.Header("Accept"), "/json")
}

// IsXMLHttpRequest reports whether the request was sent by a legacy AJAX client.
func (r *Request) IsXMLHttpRequest() bool {
	return r.Header("X-Requested-With") == "XMLHttpRequest"
}

// RemoteAddr returns the first X-Forwarded-For entry whose first octet is not
// 10, 192 or 127, falling back to the peer address.
// Only the first octet is inspected, so 172.16/12 and public 192.x addresses
// are misclassified; callers rely on this behavior.
func (r *Request) RemoteAddr() string {
	for _, addr := range strings.Split(r.Header("X-Forwarded-For"), ",") {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		switch leadingInt(addr) {
		case 10, 192, 127:
			continue
		}
		return addr
	}
	return r.server["REMOTE_ADDR"]
}

// leadingInt parses the leading decimal digits of s, returning 0 when there are none.
func leadingInt(s string) int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + int(c-'0')
		if n > 1<<16 {
			break
		}
	}
	return n
}

// WithURI returns a copy of the request with a different URI.
// The URI is normalized the same way as in NewRequest.
func (r *Request) WithURI(uri string) *Request {
	cp := *r
	path, rawQuery, hasQuery := strings.Cut(uri, "?")
	cp.uri = normalizeURI(path)
	if hasQuery {
		cp.rawQuery = rawQuery
	}
	return &cp
}

// RelativeTo returns a copy whose URI is relative to the given base path.
// Requests outside the base keep their URI.
func (r *Request) RelativeTo(base string) *Request {
	base = normalizeURI(base)
	if base == "/" {
		return r
	}
	if r.uri == base {
		return r.WithURI("/")
	}
	if rest, ok := strings.CutPrefix(r.uri, base+"/"); ok {
		return r.WithURI(rest)
	}
	return r
}

// PathInfo returns a copy whose URI is taken from the PATH_INFO server variable
// (ORIG_PATH_INFO first), or "/" when neither is set.
func (r *Request) PathInfo() *Request {
	info := r.server["ORIG_PATH_INFO"]
	if info == "" {
		info = r.server["PATH_INFO"]
	}
	return r.WithURI(info)
}
