package events

// HTTPVerb is the request method of a generic outbound HTTP request.
type HTTPVerb string

const (
	HTTPVerbGet     HTTPVerb = "GET"
	HTTPVerbPost    HTTPVerb = "POST"
	HTTPVerbPut     HTTPVerb = "PUT"
	HTTPVerbDelete  HTTPVerb = "DELETE"
	HTTPVerbPatch   HTTPVerb = "PATCH"
	HTTPVerbOptions HTTPVerb = "OPTIONS"
)

// HTTPRequest is a request to perform one outbound HTTP call and publish
// its outcome back to the log.
type HTTPRequest struct {
	// Header is copied from the enclosing envelope at decode time.
	Header Header `json:"-"`

	RequestType HTTPVerb          `json:"request_type"`
	URI         string            `json:"uri"`
	Params      map[string]string `json:"params,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	Body        string            `json:"body,omitempty"`
	// Timeout is the per-request deadline in milliseconds.
	Timeout uint64 `json:"timeout"`

	CorrelationID string `json:"correlation_id,omitempty"`
}

// HTTPResponse is the result record of a generic HTTP request. On
// transport failures StatusCode is zero and Body carries the failure
// label ("Timeout", "Connection Error").
type HTTPResponse struct {
	Request    *HTTPRequest      `json:"request,omitempty"`
	StatusCode int32             `json:"status_code,omitempty"`
	Body       []byte            `json:"response_body,omitempty"`
	Headers    map[string]string `json:"headers,omitempty"`
}
