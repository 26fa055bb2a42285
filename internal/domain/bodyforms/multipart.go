package bodyforms

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
)

// ErrTooManyParts and ErrFileTooLarge are BadRequest-equivalent failures
// the caller maps to the standard 400 per §4.13 ("cancel parsing on
// exceedance with BadRequest").
var (
	ErrTooManyParts = fmt.Errorf("bodyforms: too many multipart parts")
	ErrFileTooLarge = fmt.Errorf("bodyforms: multipart file exceeds the configured limit")
)

// MultipartFile is one file part from a multipart/form-data body.
type MultipartFile struct {
	FieldName   string
	Filename    string
	ContentType string
	Size        int64
	Content     []byte
}

// MultipartLimits bounds ParseMultipart's resource usage.
type MultipartLimits struct {
	MaxParts       int
	MaxFileBytes   int64
}

// ParseMultipart decodes a multipart/form-data body per RFC 7578, returning
// plain form fields and file parts separately. contentTypeHeader must be
// the request's Content-Type header value (carries the boundary).
func ParseMultipart(body []byte, contentTypeHeader string, limits MultipartLimits) (fields map[string][]string, files []MultipartFile, err error) {
	_, params, err := mime.ParseMediaType(contentTypeHeader)
	if err != nil {
		return nil, nil, fmt.Errorf("bodyforms: parse content type: %w", err)
	}
	boundary, ok := params["boundary"]
	if !ok {
		return nil, nil, fmt.Errorf("bodyforms: multipart content type missing boundary")
	}

	reader := multipart.NewReader(bytes.NewReader(body), boundary)
	fields = make(map[string][]string)
	partCount := 0

	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}

		partCount++
		if limits.MaxParts > 0 && partCount > limits.MaxParts {
			return nil, nil, ErrTooManyParts
		}

		if part.FileName() == "" {
			data, readErr := io.ReadAll(part)
			part.Close()
			if readErr != nil {
				return nil, nil, readErr
			}
			fields[part.FormName()] = append(fields[part.FormName()], string(data))
			continue
		}

		var data []byte
		if limits.MaxFileBytes > 0 {
			limited := io.LimitReader(part, limits.MaxFileBytes+1)
			data, err = io.ReadAll(limited)
			if err != nil {
				part.Close()
				return nil, nil, err
			}
			if int64(len(data)) > limits.MaxFileBytes {
				part.Close()
				return nil, nil, ErrFileTooLarge
			}
		} else {
			data, err = io.ReadAll(part)
			if err != nil {
				part.Close()
				return nil, nil, err
			}
		}
		part.Close()

		files = append(files, MultipartFile{
			FieldName:   part.FormName(),
			Filename:    part.FileName(),
			ContentType: part.Header.Get("Content-Type"),
			Size:        int64(len(data)),
			Content:     data,
		})
	}

	return fields, files, nil
}
