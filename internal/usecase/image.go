package usecase

import (
	"encoding/base64"
	"fmt"
	"strings"

	"palm-reader/internal/domain"
)

const defaultImageMIME = "image/jpeg"

type imageError struct {
	reason string
}

func (e *imageError) Error() string {
	return "usecase: invalid image: " + e.reason
}

// decodeImage accepts "data:<mime>;base64,<payload>" or bare base64.
func decodeImage(s string) (domain.Image, error) {
	s = strings.TrimSpace(s)
	mime := defaultImageMIME
	payload := s
	if strings.HasPrefix(s, "data:") {
		header, data, ok := strings.Cut(s, ",")
		if !ok {
			return domain.Image{}, &imageError{reason: "data URI has no payload"}
		}
		meta := strings.TrimPrefix(header, "data:")
		if !strings.HasSuffix(meta, ";base64") {
			return domain.Image{}, &imageError{reason: "data URI is not base64 encoded"}
		}
		if m := strings.TrimSuffix(meta, ";base64"); m != "" {
			mime = m
		}
		payload = data
	}
	if !strings.HasPrefix(mime, "image/") {
		return domain.Image{}, &imageError{reason: fmt.Sprintf("unsupported media type %q", mime)}
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return domain.Image{}, &imageError{reason: err.Error()}
	}
	if len(data) == 0 {
		return domain.Image{}, &imageError{reason: "empty payload"}
	}
	return domain.Image{MIMEType: mime, Data: data}, nil
}
