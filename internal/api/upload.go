package api

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sync/atomic"
)

// UploadFile is one file of a folder upload.
type UploadFile struct {
	// Name is the path relative to the picked folder's parent, including
	// the folder's own name (e.g. "shop/frontend/package.json").
	Name string

	// Open returns the file content. It is called once, while the
	// multipart body is being streamed.
	Open func() (io.ReadCloser, error)
}

// ProgressFunc receives the number of body bytes sent so far.
type ProgressFunc func(sent int64)

// UploadFolder sends files as one multipart form: a repeated "files" part
// per file (the part's filename carries the relative path) followed by a
// "root" field naming the destination folder on the backend.
//
// The body is streamed through a pipe so large folders are never held in
// memory. The per-request timeout does not apply; cancel ctx to abort.
func (c *Client) UploadFolder(ctx context.Context, root string, files []UploadFile, progress ProgressFunc) error {
	if len(files) == 0 {
		return fmt.Errorf("upload folder: no files to upload")
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		err := writeUploadForm(mw, root, files)
		if err == nil {
			err = mw.Close()
		}
		// CloseWithError(nil) closes the pipe normally.
		_ = pw.CloseWithError(err)
	}()

	var body io.Reader = pr
	if progress != nil {
		body = &progressReader{r: pr, fn: progress}
	}

	err := c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/core/upload-folder",
		body:        body,
		contentType: mw.FormDataContentType(),
		streaming:   true,
	}, nil)
	// Unblock the writer goroutine if the request ended early.
	_ = pr.CloseWithError(io.ErrClosedPipe)
	return err
}

// writeUploadForm writes every file part and the root field.
func writeUploadForm(mw *multipart.Writer, root string, files []UploadFile) error {
	for _, f := range files {
		if err := writeUploadPart(mw, f); err != nil {
			return err
		}
	}
	return mw.WriteField("root", root)
}

// writeUploadPart copies one file into its own "files" part.
func writeUploadPart(mw *multipart.Writer, f UploadFile) error {
	part, err := mw.CreateFormFile("files", f.Name)
	if err != nil {
		return fmt.Errorf("create part for %q: %w", f.Name, err)
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open %q: %w", f.Name, err)
	}
	defer func() { _ = rc.Close() }()

	if _, err := io.Copy(part, rc); err != nil {
		return fmt.Errorf("copy %q: %w", f.Name, err)
	}
	return nil
}

// progressReader reports cumulative bytes read to fn.
type progressReader struct {
	r    io.Reader
	fn   ProgressFunc
	sent atomic.Int64
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.fn(p.sent.Add(int64(n)))
	}
	return n, err
}
