package domain

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
)

// DataURI is a decoded `data:<mime>[;base64],<payload>` upload.
type DataURI struct {
	MediaType string
	Data      []byte
}

// DecodeDataURI parses the browser upload format. Whitespace inside the
// base64 payload is ignored and unpadded payloads are accepted.
func DecodeDataURI(s string) (DataURI, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(strings.ToLower(s), "data:") {
		return DataURI{}, fmt.Errorf("op=domain.DecodeDataURI: %w: missing data: scheme", ErrInvalidArgument)
	}
	header, payload, ok := strings.Cut(s[len("data:"):], ",")
	if !ok {
		return DataURI{}, fmt.Errorf("op=domain.DecodeDataURI: %w: missing comma", ErrInvalidArgument)
	}
	params := strings.Split(header, ";")
	out := DataURI{MediaType: strings.ToLower(strings.TrimSpace(params[0]))}
	if out.MediaType == "" {
		out.MediaType = "text/plain"
	}
	isBase64 := false
	for _, p := range params[1:] {
		if strings.EqualFold(strings.TrimSpace(p), "base64") {
			isBase64 = true
		}
	}
	if !isBase64 {
		raw, err := url.PathUnescape(payload)
		if err != nil {
			return DataURI{}, fmt.Errorf("op=domain.DecodeDataURI: %w: %v", ErrInvalidArgument, err)
		}
		out.Data = []byte(raw)
		return out, nil
	}
	payload = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, payload)
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
	}
	if err != nil {
		return DataURI{}, fmt.Errorf("op=domain.DecodeDataURI: %w: bad base64 payload", ErrInvalidArgument)
	}
	out.Data = data
	return out, nil
}
