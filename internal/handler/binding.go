package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/sakif/deployhub/internal/apperror"
)

// maxBodyBytes caps request bodies; nothing this API accepts is larger.
const maxBodyBytes = 1 << 20

var errMalformedBody = &apperror.AppError{
	Err:     apperror.ErrValidation,
	Message: "JSON parse error",
}

// bodyFields reads a JSON object or a form body into raw JSON values keyed
// by member name. Form values become JSON strings. An empty body yields an
// empty map.
func bodyFields(w http.ResponseWriter, r *http.Request) (map[string]json.RawMessage, error) {
	fields := map[string]json.RawMessage{}
	if r.Body == nil {
		return fields, nil
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded":
		// Parsed by hand: r.ParseForm skips the body of a GET.
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, errMalformedBody
		}
		values, err := url.ParseQuery(string(body))
		if err != nil {
			return nil, errMalformedBody
		}
		return formFields(fields, values), nil
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
			return nil, errMalformedBody
		}
		return formFields(fields, r.PostForm), nil
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, errMalformedBody
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return fields, nil
	}
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, errMalformedBody
	}
	return fields, nil
}

func formFields(fields map[string]json.RawMessage, values url.Values) map[string]json.RawMessage {
	for name, vs := range values {
		if len(vs) == 0 {
			continue
		}
		raw, _ := json.Marshal(vs[0])
		fields[name] = raw
	}
	return fields
}

// requestField returns a string parameter from the body (JSON or form) or,
// failing that, the query string. Values are trimmed. ok is false when
// the parameter is absent or null.
func requestField(fields map[string]json.RawMessage, r *http.Request, name string) (value string, ok bool) {
	if raw, found := fields[name]; found && string(raw) != "null" {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return strings.TrimSpace(s), true
		}
		// Numbers and booleans are accepted as their literal text.
		return strings.TrimSpace(string(raw)), true
	}
	if values, found := r.URL.Query()[name]; found && len(values) > 0 {
		return strings.TrimSpace(values[0]), true
	}
	return "", false
}

// bindInput decodes fields into the pointer members of the struct dst
// points to, matching members by their json tag. Absent and null members
// stay nil. Unknown members are ignored. Type mismatches are collected per
// field and returned as one validation error.
func bindInput(fields map[string]json.RawMessage, dst any) error {
	rv := reflect.ValueOf(dst).Elem()
	rt := rv.Type()
	problems := map[string][]string{}

	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		name := strings.SplitN(sf.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			continue
		}
		raw, found := fields[name]
		if !found || string(raw) == "null" {
			continue
		}

		target := reflect.New(sf.Type.Elem())
		if err := decodeMember(raw, target.Interface()); err != nil {
			problems[name] = []string{typeMessage(sf.Type.Elem())}
			continue
		}
		rv.Field(i).Set(target)
	}

	if len(problems) > 0 {
		return apperror.InvalidFields(problems)
	}
	return nil
}

// decodeMember unmarshals raw into target. Integers may also arrive as
// strings, as they do from form bodies.
func decodeMember(raw json.RawMessage, target any) error {
	err := json.Unmarshal(raw, target)
	if err == nil {
		return nil
	}

	elem := reflect.ValueOf(target).Elem()
	switch elem.Kind() {
	case reflect.Int, reflect.Int64, reflect.Int32:
		var s string
		if json.Unmarshal(raw, &s) != nil {
			return err
		}
		n, perr := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if perr != nil {
			return fmt.Errorf("parsing %q: %w", s, perr)
		}
		elem.SetInt(n)
		return nil
	}
	return err
}

func typeMessage(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Int, reflect.Int64, reflect.Int32:
		return "A valid integer is required."
	case reflect.String:
		return "Not a valid string."
	case reflect.Struct:
		return "A valid number is required."
	default:
		return "Invalid value."
	}
}

// parseID reads a positive integer path parameter.
func parseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
