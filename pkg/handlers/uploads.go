package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"go.uber.org/zap"
)

// multipartMemory is how much of a multipart body is held in memory before
// spilling to temp files.
const multipartMemory = 8 << 20

// upload is one file part of a multipart request.
type upload struct {
	FileName string
	Data     []byte
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

// parseMultipart parses the form, writing 413 or 400 on failure.
func parseMultipart(w http.ResponseWriter, r *http.Request, logger *zap.Logger) bool {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "too_large",
				fmt.Sprintf("Upload exceeds %d bytes", maxErr.Limit), logger)
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid multipart form", logger)
		return false
	}
	return true
}

// formFile reads an optional file part. It returns nil when the part is absent
// or empty.
func formFile(r *http.Request, field string) (*upload, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", field, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", field, err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	return &upload{FileName: header.Filename, Data: data}, nil
}
