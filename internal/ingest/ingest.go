// Package ingest turns raw HTTP bodies into canonical notification requests,
// staging uploaded files in per-request scratch directories.
package ingest

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"notifyd/internal/domain"
)

const defaultImageExt = "jpg"

// Ingestor parses send requests. Structured (JSON) bodies map directly onto
// the canonical fields; multipart bodies are demultiplexed part by part with
// file parts staged on disk.
type Ingestor struct {
	scratch *ScratchDirs
	logger  *slog.Logger
}

func New(scratch *ScratchDirs, logger *slog.Logger) *Ingestor {
	return &Ingestor{scratch: scratch, logger: logger}
}

// Parse produces the canonical request plus the scratch directory that was
// created for it (empty when no files were staged).
func (in *Ingestor) Parse(r *http.Request) (*domain.NotificationRequest, string, error) {
	contentType := r.Header.Get("Content-Type")
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err == nil && mediaType == "multipart/form-data" {
		mr := multipart.NewReader(r.Body, params["boundary"])
		return in.parseMultipart(mr)
	}
	req, err := in.parseJSON(r.Body)
	return req, "", err
}

func (in *Ingestor) parseJSON(body io.Reader) (*domain.NotificationRequest, error) {
	var req domain.NotificationRequest
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		return nil, &domain.ClientError{Msg: "invalid JSON body: " + err.Error()}
	}
	return &req, nil
}

// parseMultipart demultiplexes the named parts title, message,
// callback_command (text), image (single file) and files (zero or more
// files). Unknown parts are logged and skipped; that must never fail the
// request.
func (in *Ingestor) parseMultipart(mr *multipart.Reader) (*domain.NotificationRequest, string, error) {
	// A fresh collision-free directory per request, created before any file
	// part is written, so concurrent requests never share scratch space.
	dir, err := in.scratch.NewDir()
	if err != nil {
		return nil, "", err
	}

	req := &domain.NotificationRequest{}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, dir, &domain.ClientError{Msg: "malformed multipart body: " + err.Error()}
		}

		name := part.FormName()
		switch name {
		case "title":
			req.Title, err = readTextPart(part, name)
		case "message":
			req.Message, err = readTextPart(part, name)
		case "callback_command":
			req.CallbackCommand, err = readTextPart(part, name)
		case "image":
			err = in.saveImagePart(part, dir, req)
		case "files":
			err = in.saveFilePart(part, dir, req)
		default:
			in.logger.Warn("ignoring unexpected multipart field", "field", name)
		}
		part.Close()
		if err != nil {
			return nil, dir, err
		}
	}

	return req, dir, nil
}

func readTextPart(part *multipart.Part, name string) (string, error) {
	data, err := io.ReadAll(part)
	if err != nil {
		return "", &domain.ClientError{Msg: fmt.Sprintf("cannot read %s part: %v", name, err)}
	}
	if !utf8.Valid(data) {
		return "", &domain.ClientError{Msg: fmt.Sprintf("invalid %s encoding", name)}
	}
	return string(data), nil
}

// saveImagePart stages the image under a canonical filename that preserves
// the original extension.
func (in *Ingestor) saveImagePart(part *multipart.Part, dir string, req *domain.NotificationRequest) error {
	filename := part.FileName()
	if filename == "" {
		in.logger.Warn("image part without filename, skipping")
		return nil
	}

	ext := strings.TrimPrefix(filepath.Ext(filename), ".")
	if ext == "" {
		ext = defaultImageExt
	}

	path := filepath.Join(dir, "image."+ext)
	if err := writeFile(path, part); err != nil {
		return err
	}
	req.ImagePath = path
	return nil
}

// saveFilePart stages an attachment under its original base filename.
func (in *Ingestor) saveFilePart(part *multipart.Part, dir string, req *domain.NotificationRequest) error {
	filename := part.FileName()
	if filename == "" {
		in.logger.Warn("file part without filename, skipping")
		return nil
	}

	// Base name only: client-supplied paths must not escape the scratch dir.
	path := filepath.Join(dir, filepath.Base(filename))
	if err := writeFile(path, part); err != nil {
		return err
	}
	req.FilePaths = append(req.FilePaths, path)
	return nil
}

func writeFile(path string, src io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return &domain.ResourceError{Msg: "cannot create staged file", Err: err}
	}
	defer f.Close()

	if _, err := io.Copy(f, src); err != nil {
		return &domain.ResourceError{Msg: "cannot write staged file", Err: err}
	}
	return nil
}
