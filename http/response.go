package http

import (
	"github.com/ember-web/ember/http/errpage"
	"github.com/ember-web/ember/http/status"
	"github.com/ember-web/ember/kv"
)

// Response is a builder-style value, so a handler can be as short as
//
//	return http.Respond().String("hello")
type Response struct {
	Code    status.Code
	Headers *kv.Storage
	Body    []byte

	// Close requests closing the connection after the response is written.
	Close bool
}

func Respond() *Response {
	return &Response{
		Code:    status.OK,
		Headers: kv.New(),
	}
}

func (r *Response) Status(code status.Code) *Response {
	r.Code = code
	return r
}

func (r *Response) Header(key, value string) *Response {
	r.Headers.Add(key, value)
	return r
}

func (r *Response) Bytes(body []byte) *Response {
	r.Body = body
	return r
}

func (r *Response) String(body string) *Response {
	return r.Bytes([]byte(body))
}

// JSON marshals the model into the body and sets the content type.
func (r *Response) JSON(model any) *Response {
	body, err := json.Marshal(model)
	if err != nil {
		return r.Error(status.InternalServerError)
	}

	return r.Header("Content-Type", "application/json").Bytes(body)
}

// Error responds with the canned HTML page for the code and closes the
// connection.
func (r *Response) Error(code status.Code) *Response {
	r.Code = code
	r.Close = true
	return r.
		Header("Content-Type", "text/html; charset=utf-8").
		Header("Connection", "close").
		String(errpage.Get(code))
}
