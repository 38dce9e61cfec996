package server

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"postcraft/pkg/ai"
	"postcraft/services/content/internal/app"
)

const (
	defaultMaxImages     = 5
	defaultMaxImageBytes = 10 << 20
	multipartMemory      = 32 << 20
	formOverheadBytes    = 1 << 20
)

var defaultImageTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

// uploadError is an ingress rejection; always a 400.
type uploadError struct {
	msg string
}

func (e *uploadError) Error() string { return e.msg }

func badUpload(format string, args ...any) error {
	return &uploadError{msg: fmt.Sprintf(format, args...)}
}

func writeUploadError(w http.ResponseWriter, err error) {
	var uerr *uploadError
	if errors.As(err, &uerr) {
		writeError(w, http.StatusBadRequest, uerr.msg)
		return
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusBadRequest, "request body too large")
		return
	}
	writeError(w, http.StatusBadRequest, "invalid form data")
}

func normalizeImageTypes(types []string) map[string]struct{} {
	if len(types) == 0 {
		types = defaultImageTypes
	}
	out := make(map[string]struct{}, len(types))
	for _, t := range types {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			out[t] = struct{}{}
		}
	}
	return out
}

// parseForm reads a multipart body bounded by the image limits.
func (s *Server) parseForm(w http.ResponseWriter, r *http.Request) error {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/form-data" {
		return badUpload("expected multipart/form-data")
	}
	r.Body = http.MaxBytesReader(w, r.Body, int64(s.maxImages)*s.maxImageBytes+formOverheadBytes)
	return r.ParseMultipartForm(multipartMemory)
}

func (s *Server) parseGenerateRequest(w http.ResponseWriter, r *http.Request) (app.GenerateRequest, error) {
	if err := s.parseForm(w, r); err != nil {
		return app.GenerateRequest{}, err
	}
	defer r.MultipartForm.RemoveAll()

	req := app.GenerateRequest{
		Platform:    r.FormValue("platform"),
		ContentType: r.FormValue("contentType"),
		Brief:       r.FormValue("brief"),
		Template:    r.FormValue("template"),
	}
	if raw := strings.TrimSpace(r.FormValue("templateId")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return app.GenerateRequest{}, badUpload("invalid templateId")
		}
		req.TemplateID = id
	}

	files := r.MultipartForm.File["images"]
	if len(files) > s.maxImages {
		return app.GenerateRequest{}, badUpload("too many images (max %d)", s.maxImages)
	}
	for _, fh := range files {
		img, err := s.readImage(fh)
		if err != nil {
			return app.GenerateRequest{}, err
		}
		req.Images = append(req.Images, img)
	}
	return req, nil
}

func (s *Server) parseSingleImage(w http.ResponseWriter, r *http.Request, field string) (ai.Image, error) {
	if err := s.parseForm(w, r); err != nil {
		return ai.Image{}, err
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File[field]
	switch {
	case len(files) == 0:
		return ai.Image{}, badUpload("image file is required (field: %s)", field)
	case len(files) > 1:
		return ai.Image{}, badUpload("only one image allowed (field: %s)", field)
	}
	return s.readImage(files[0])
}

// readImage enforces the size cap and media type of one uploaded part.
// A missing or generic declared type falls back to content sniffing.
func (s *Server) readImage(fh *multipart.FileHeader) (ai.Image, error) {
	if fh.Size > s.maxImageBytes {
		return ai.Image{}, badUpload("image %q exceeds %d bytes", fh.Filename, s.maxImageBytes)
	}
	f, err := fh.Open()
	if err != nil {
		return ai.Image{}, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, s.maxImageBytes+1))
	if err != nil {
		return ai.Image{}, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.maxImageBytes {
		return ai.Image{}, badUpload("image %q exceeds %d bytes", fh.Filename, s.maxImageBytes)
	}
	if len(data) == 0 {
		return ai.Image{}, badUpload("image %q is empty", fh.Filename)
	}

	mediaType, _, _ := mime.ParseMediaType(fh.Header.Get("Content-Type"))
	if mediaType == "" || mediaType == "application/octet-stream" {
		mediaType, _, _ = mime.ParseMediaType(http.DetectContentType(data))
	}
	mediaType = strings.ToLower(mediaType)
	if _, ok := s.imageTypes[mediaType]; !ok {
		return ai.Image{}, badUpload("unsupported image type %q", mediaType)
	}
	return ai.Image{MIMEType: mediaType, Data: data}, nil
}
