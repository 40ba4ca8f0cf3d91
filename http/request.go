package http

import (
	jsoniter "github.com/json-iterator/go"

	"github.com/ember-web/ember/http/method"
	"github.com/ember-web/ember/kv"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Request carries a single parsed HTTP/1.1 request. The instance is re-used
// between requests on the same connection, so none of the fields may be
// retained past the handler call.
type Request struct {
	Method  method.Method
	Target  Target
	Version string
	Headers *kv.Storage
	// Body is nil unless the request carried a positive Content-Length.
	Body []byte
}

func NewRequest(headers *kv.Storage) *Request {
	return &Request{
		Headers: headers,
	}
}

// HasBody reports whether the request carried a body.
func (r *Request) HasBody() bool {
	return r.Body != nil
}

// JSON unmarshals the request body into the model.
func (r *Request) JSON(model any) error {
	return json.Unmarshal(r.Body, model)
}

// Reset prepares the request for re-use by the next message on the
// connection.
func (r *Request) Reset() {
	r.Method = method.Unknown
	r.Target = Target{}
	r.Version = ""
	r.Headers.Clear()
	r.Body = nil
}
