package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/fairyhunter13/skills-warrior/internal/domain"
)

const maxJSONBody = 2 << 20

// analyzeRequest is the body of /v1/analyze and /v1/radar.
type analyzeRequest struct {
	CVText         string   `json:"cv_text" validate:"required,max=1000000"`
	JobDescription string   `json:"job_description" validate:"required,max=1000000"`
	Threshold      *float64 `json:"threshold" validate:"omitempty,min=0,max=100"`
	Method         string   `json:"method" validate:"omitempty,oneof=overlap cosine"`
}

type wordcloudRequest struct {
	Text    string `json:"text" validate:"required,max=1000000"`
	Palette string `json:"palette" validate:"omitempty,oneof=greens blues"`
}

// extractRequest carries a document as a data URI.
type extractRequest struct {
	Filename string `json:"filename" validate:"required,max=255"`
	Contents string `json:"contents" validate:"required,startswith=data:"`
}

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() {
		vld = validator.New()
		vld.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return vld
}

// validationDetails lists failing fields by their JSON name.
func validationDetails(err error) map[string]string {
	out := map[string]string{}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			out[fe.Field()] = fe.Tag()
		}
	}
	return out
}

// decodeJSON reads a capped JSON body into dst and validates it. It writes the
// error response itself and reports whether the handler may continue.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, limit int64) bool {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "application/json") {
		writeError(w, r, fmt.Errorf("%w: content-type must be application/json", domain.ErrUnsupportedMedia), nil)
		return false
	}
	if limit <= 0 {
		limit = maxJSONBody
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeTooLarge(w, (limit+(1<<20)-1)>>20)
		case errors.Is(err, io.EOF):
			writeError(w, r, fmt.Errorf("%w: empty body", domain.ErrInvalidArgument), nil)
		default:
			writeError(w, r, fmt.Errorf("%w: invalid json", domain.ErrInvalidArgument), map[string]string{"decode": err.Error()})
		}
		return false
	}
	if err := getValidator().Struct(dst); err != nil {
		writeError(w, r, fmt.Errorf("%w: validation failed", domain.ErrInvalidArgument), validationDetails(err))
		return false
	}
	return true
}
