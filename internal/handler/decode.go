package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/sakif/fitplan/internal/checklist"
)

const (
	maxBodyBytes      = 1 << 20 // 1 MiB
	maxMultipartBytes = 8 << 20
)

// formInput is implemented by request types that can also arrive as an
// HTML form. Fields are read by the same names the JSON body uses.
type formInput interface {
	fromForm(form url.Values)
}

// decodeRequest reads the request body into dst in one typed step.
//
// JSON bodies (or no Content-Type at all) go through encoding/json with
// unknown fields rejected. application/x-www-form-urlencoded and
// multipart/form-data bodies are accepted when dst implements formInput.
// An empty JSON body leaves dst untouched.
func decodeRequest(r *http.Request, dst any) error {
	mediaType := ""
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mt, _, err := mime.ParseMediaType(ct)
		if err != nil {
			return fmt.Errorf("invalid Content-Type: %w", err)
		}
		mediaType = mt
	}

	switch mediaType {
	case "application/x-www-form-urlencoded":
		fi, ok := dst.(formInput)
		if !ok {
			return errors.New("this endpoint only accepts JSON")
		}
		r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)
		if err := r.ParseForm(); err != nil {
			return fmt.Errorf("invalid form body: %w", err)
		}
		fi.fromForm(r.PostForm)
		return nil

	case "multipart/form-data":
		fi, ok := dst.(formInput)
		if !ok {
			return errors.New("this endpoint only accepts JSON")
		}
		r.Body = http.MaxBytesReader(nil, r.Body, maxMultipartBytes)
		if err := r.ParseMultipartForm(maxMultipartBytes); err != nil {
			return fmt.Errorf("invalid multipart body: %w", err)
		}
		fi.fromForm(r.PostForm)
		return nil

	case "", "application/json":
		dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
		dec.DisallowUnknownFields()
		if err := dec.Decode(dst); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("invalid JSON body: %w", err)
		}
		if dec.More() {
			return errors.New("invalid JSON body: multiple values")
		}
		return nil

	default:
		return fmt.Errorf("unsupported Content-Type %q", mediaType)
	}
}

// formString returns a pointer to the field's value, or nil when the form
// does not carry the field at all.
func formString(form url.Values, key string) *string {
	if _, ok := form[key]; !ok {
		return nil
	}
	v := form.Get(key)
	return &v
}

// formList reads a comma-separated form field as a list. A present but empty
// field is an empty list; an absent field is nil.
func formList(form url.Values, key string) *[]string {
	if _, ok := form[key]; !ok {
		return nil
	}
	list := checklist.Split(form.Get(key))
	return &list
}

// splitIDs parses a comma-separated path segment such as "a,b,c".
func splitIDs(raw string) []string {
	var ids []string
	for _, part := range strings.Split(raw, ",") {
		if id := strings.TrimSpace(part); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
