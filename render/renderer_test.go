package render

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/valyala/bytebufferpool"

	"github.com/ember-web/ember/http"
	"github.com/ember-web/ember/http/status"
)

func TestRender(t *testing.T) {
	t.Run("body with headers", func(t *testing.T) {
		resp := http.Respond().
			Header("Content-Type", "text/plain").
			String("hello")

		buf := bytebufferpool.Get()
		defer bytebufferpool.Put(buf)
		Render(resp, buf)

		require.Equal(t,
			"HTTP/1.1 200 OK\r\n"+
				"Content-Type: text/plain\r\n"+
				"Content-Length: 5\r\n"+
				"\r\n"+
				"hello",
			buf.String())
	})

	t.Run("empty body still carries a length", func(t *testing.T) {
		buf := bytebufferpool.Get()
		defer bytebufferpool.Put(buf)
		Render(http.Respond().Status(status.NoContent), buf)

		require.Equal(t, "HTTP/1.1 204 No Content\r\nContent-Length: 0\r\n\r\n", buf.String())
	})

	t.Run("explicit content length wins", func(t *testing.T) {
		resp := http.Respond().
			Header("Content-Length", "5").
			String("hello")

		buf := bytebufferpool.Get()
		defer bytebufferpool.Put(buf)
		Render(resp, buf)

		require.Equal(t, "HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nhello", buf.String())
	})

	t.Run("error page", func(t *testing.T) {
		buf := bytebufferpool.Get()
		defer bytebufferpool.Put(buf)
		Render(http.Respond().Error(status.BadRequest), buf)

		require.Contains(t, buf.String(), "HTTP/1.1 400 Bad Request\r\n")
		require.Contains(t, buf.String(), "Connection: close\r\n")
		require.Contains(t, buf.String(), "<h1>400 Bad Request</h1>")
	})
}
