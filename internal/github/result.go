package github

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Result is the outcome of one upstream call that got an HTTP response.
//
// Payload is the response body as received. A body that is not valid JSON
// is carried as a JSON string so it can still be embedded in a response;
// an empty body is null.
//
// A call that never got a response (DNS, timeout, reset) has no Result:
// the client returns an error instead. Callers therefore see three cases:
// error, !OK(), OK().
type Result struct {
	Status  int
	Payload json.RawMessage
}

// OK reports whether the upstream answered with a 2xx status.
func (r Result) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// UpstreamError is a non-2xx (or unusable) upstream answer that a caller
// decided to fail on rather than degrade.
type UpstreamError struct {
	Call    string // "identity", "repositories", ...
	Status  int
	Payload json.RawMessage
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("github: %s returned status %d", e.Call, e.Status)
}

func asPayload(body []byte) json.RawMessage {
	if len(body) == 0 {
		return json.RawMessage("null")
	}
	if json.Valid(body) {
		return json.RawMessage(body)
	}
	// Keep "&" and "<" as written; json.Marshal would escape them.
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(string(body))
	return json.RawMessage(bytes.TrimRight(buf.Bytes(), "\n"))
}
