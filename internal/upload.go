package internal

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
)

// UploadErrorCode describes the outcome of a single file upload.
// Values match the codes reported by CGI-style upload handling.
type UploadErrorCode int

const (
	UploadOK              UploadErrorCode = 0
	UploadErrSizeExceeded UploadErrorCode = 1
	UploadErrFormSize     UploadErrorCode = 2
	UploadErrPartial      UploadErrorCode = 3
	UploadErrNoFile       UploadErrorCode = 4
	UploadErrNoTempDir    UploadErrorCode = 6
	UploadErrCantWrite    UploadErrorCode = 7
	UploadErrExtension    UploadErrorCode = 8
)

// Upload sentinel errors. Use errors.Is on the error returned by Request.Files.
var (
	ErrSizeExceeded     = errors.New("subframe: uploaded file exceeds size limit")
	ErrPartialUpload    = errors.New("subframe: file was only partially uploaded")
	ErrNoTempDir        = errors.New("subframe: no temporary directory for uploads")
	ErrWriteError       = errors.New("subframe: failed to write uploaded file")
	ErrExtensionBlocked = errors.New("subframe: file extension is not allowed")
	ErrUploadFailed     = errors.New("subframe: upload failed")
)

// UploadedFile describes one uploaded file.
type UploadedFile struct {
	header   *multipart.FileHeader
	Name     string
	TempPath string
	Type     string
	Size     int64
	Error    UploadErrorCode
}

// Open returns the file contents.
// Files parsed from a multipart body are read from the parsed form, so Open
// works whether the part was kept in memory or spooled to TempPath.
// Literal descriptors are read from TempPath.
func (f UploadedFile) Open() (io.ReadCloser, error) {
	if f.header != nil {
		return f.header.Open()
	}
	if f.TempPath == "" {
		return nil, ErrUploadFailed
	}
	return os.Open(f.TempPath)
}

// UploadError is returned when an uploaded file carries a failure code.
type UploadError struct {
	Err   error
	Field string
	File  string
	Code  UploadErrorCode
}

func (e *UploadError) Error() string {
	switch e.Code {
	case UploadErrSizeExceeded:
		return fmt.Sprintf("%q exceeds size limit", e.File)
	case UploadErrFormSize:
		return fmt.Sprintf("%q is too big", e.File)
	case UploadErrPartial:
		return fmt.Sprintf("%q was not uploaded", e.File)
	case UploadErrNoTempDir:
		return "No tmp directory."
	case UploadErrCantWrite:
		return "Write error."
	case UploadErrExtension:
		return "File extension is not allowed."
	default:
		return fmt.Sprintf("Upload failed (error %d).", int(e.Code))
	}
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// StatusCode maps the upload failure to an HTTP status.
func (e *UploadError) StatusCode() int {
	switch e.Code {
	case UploadErrSizeExceeded, UploadErrFormSize:
		return http.StatusRequestEntityTooLarge
	case UploadErrPartial:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func newUploadError(field string, f UploadedFile) *UploadError {
	var err error
	switch f.Error {
	case UploadErrSizeExceeded, UploadErrFormSize:
		err = ErrSizeExceeded
	case UploadErrPartial:
		err = ErrPartialUpload
	case UploadErrNoTempDir:
		err = ErrNoTempDir
	case UploadErrCantWrite:
		err = ErrWriteError
	case UploadErrExtension:
		err = ErrExtensionBlocked
	default:
		err = ErrUploadFailed
	}
	return &UploadError{Err: err, Field: field, File: f.Name, Code: f.Error}
}

// dropEmptyUploads removes descriptors that report no file at all.
func dropEmptyUploads(src map[string][]UploadedFile) map[string][]UploadedFile {
	dst := make(map[string][]UploadedFile, len(src))
	for field, files := range src {
		kept := make([]UploadedFile, 0, len(files))
		for _, f := range files {
			if f.Error != UploadErrNoFile {
				kept = append(kept, f)
			}
		}
		if len(kept) > 0 {
			dst[field] = kept
		}
	}
	return dst
}

// uploadsFromMultipart converts parsed multipart file headers to descriptors.
// Files above maxFileBytes are flagged with UploadErrSizeExceeded.
func uploadsFromMultipart(form *multipart.Form, maxFileBytes int64) map[string][]UploadedFile {
	if form == nil || len(form.File) == 0 {
		return nil
	}
	out := make(map[string][]UploadedFile, len(form.File))
	for field, headers := range form.File {
		for _, fh := range headers {
			f := UploadedFile{
				header:   fh,
				Name:     fh.Filename,
				TempPath: spooledPath(fh),
				Type:     fh.Header.Get("Content-Type"),
				Size:     fh.Size,
			}
			switch {
			case fh.Filename == "" && fh.Size == 0:
				f.Error = UploadErrNoFile
			case maxFileBytes > 0 && fh.Size > maxFileBytes:
				f.Error = UploadErrSizeExceeded
			}
			out[field] = append(out[field], f)
		}
	}
	return out
}

// spooledPath returns the temporary file backing a part that exceeded the
// in-memory threshold. It is "" for parts held in memory and for parts that
// share one temporary file with other spooled parts; Open reads both.
func spooledPath(fh *multipart.FileHeader) string {
	f, err := fh.Open()
	if err != nil {
		return ""
	}
	defer f.Close()
	if osf, ok := f.(*os.File); ok {
		return osf.Name()
	}
	return ""
}
