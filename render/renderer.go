// Package render serializes responses into the HTTP/1.1 wire format.
package render

import (
	"strconv"

	"github.com/valyala/bytebufferpool"

	"github.com/ember-web/ember/http"
	"github.com/ember-web/ember/http/status"
)

const crlf = "\r\n"

// Render writes the status line, headers, a Content-Length and the body
// into buf. Buffers come from bytebufferpool and are returned by the caller
// once the bytes are on the wire.
func Render(resp *http.Response, buf *bytebufferpool.ByteBuffer) {
	_, _ = buf.WriteString("HTTP/1.1 ")
	buf.B = strconv.AppendUint(buf.B, uint64(resp.Code), 10)
	_ = buf.WriteByte(' ')
	_, _ = buf.WriteString(string(status.Text(resp.Code)))
	_, _ = buf.WriteString(crlf)

	for key, value := range resp.Headers.Pairs() {
		_, _ = buf.WriteString(key)
		_, _ = buf.WriteString(": ")
		_, _ = buf.WriteString(value)
		_, _ = buf.WriteString(crlf)
	}

	if !resp.Headers.Has("Content-Length") {
		_, _ = buf.WriteString("Content-Length: ")
		buf.B = strconv.AppendInt(buf.B, int64(len(resp.Body)), 10)
		_, _ = buf.WriteString(crlf)
	}

	_, _ = buf.WriteString(crlf)
	_, _ = buf.Write(resp.Body)
}
