package httpparse

import (
	"strconv"
	"strings"
	"testing"

	"github.com/dchest/uniuri"
	"github.com/stretchr/testify/require"

	"github.com/ember-web/ember/config"
	"github.com/ember-web/ember/http"
	"github.com/ember-web/ember/http/method"
	"github.com/ember-web/ember/kv"
)

func newRequest() *http.Request {
	return http.NewRequest(kv.New())
}

// feed drives a fresh parser task with the given chunks and returns the
// verdict. The second return is false if the parser still wants more data
// after the last chunk.
func feed(t *testing.T, request *http.Request, chunks ...string) (Verdict, bool) {
	t.Helper()

	task := New(config.Default().HTTP).Run(request)
	for _, chunk := range chunks {
		verdict, done := task.Send(chunk)
		if done {
			return verdict, true
		}
	}

	task.Stop()

	return Verdict{}, false
}

func TestParseGET(t *testing.T) {
	request := newRequest()
	verdict, done := feed(t, request, "GET / HTTP/1.1\r\nHost: x\r\n\r\n")

	require.True(t, done)
	require.True(t, verdict.OK)
	require.Empty(t, verdict.Rest)
	require.Equal(t, method.GET, request.Method)
	require.Equal(t, http.OriginForm, request.Target.Form)
	require.Equal(t, "/", request.Target.Path)
	require.Empty(t, request.Target.Query)
	require.Equal(t, "HTTP/1.1", request.Version)
	require.Equal(t, 1, request.Headers.Len())
	require.Equal(t, "x", request.Headers.Value("Host"))
	require.False(t, request.HasBody())
}

func TestParsePOSTWithBody(t *testing.T) {
	request := newRequest()
	verdict, done := feed(t, request, "POST /a HTTP/1.1\r\nContent-Length: 5\r\n\r\nhelloEXTRA")

	require.True(t, done)
	require.True(t, verdict.OK)
	require.Equal(t, method.POST, request.Method)
	require.Equal(t, "hello", string(request.Body))
	require.Equal(t, "EXTRA", verdict.Rest)
}

func TestParseChunkSplitHeaders(t *testing.T) {
	request := newRequest()
	verdict, done := feed(t, request, "GET /p?x=1 HTTP/1.1\r\nA: 1", "\r\nB: 2\r\n\r\n")

	require.True(t, done)
	require.True(t, verdict.OK)
	require.Equal(t, "/p", request.Target.Path)
	require.Equal(t, "x=1", request.Target.Query)
	require.Equal(t, "1", request.Headers.Value("A"))
	require.Equal(t, "2", request.Headers.Value("B"))
}

func TestParseCRLFSplitAcrossChunks(t *testing.T) {
	request := newRequest()
	verdict, done := feed(t, request, "GET / HTTP/1.1\r", "\nHost: x\r", "\n\r", "\n")

	require.True(t, done)
	require.True(t, verdict.OK)
	require.Equal(t, method.GET, request.Method)
	require.Equal(t, "x", request.Headers.Value("Host"))
}

func TestParsePercentDecodedPath(t *testing.T) {
	request := newRequest()
	verdict, done := feed(t, request, "GET /hello%20world HTTP/1.1\r\n\r\n")

	require.True(t, done)
	require.True(t, verdict.OK)
	require.Equal(t, "/hello world", request.Target.Path)
}

func TestParseAsteriskForm(t *testing.T) {
	request := newRequest()
	verdict, done := feed(t, request, "OPTIONS * HTTP/1.1\r\n\r\n")

	require.True(t, done)
	require.True(t, verdict.OK)
	require.Equal(t, http.AsteriskForm, request.Target.Form)
}

func TestParseZeroContentLength(t *testing.T) {
	request := newRequest()
	verdict, done := feed(t, request, "POST / HTTP/1.1\r\nContent-Length: 0\r\n\r\nGET")

	require.True(t, done)
	require.True(t, verdict.OK)
	require.False(t, request.HasBody())
	require.Equal(t, "GET", verdict.Rest)
}

func TestParseHeaderValueTrimming(t *testing.T) {
	request := newRequest()
	verdict, done := feed(t, request, "GET / HTTP/1.1\r\nA:  \t some value \t \r\n\r\n")

	require.True(t, done)
	require.True(t, verdict.OK)
	require.Equal(t, "some value", request.Headers.Value("A"))
}

func TestParseBodySplitAcrossChunks(t *testing.T) {
	request := newRequest()
	verdict, done := feed(t, request,
		"POST / HTTP/1.1\r\nContent-Length: 10\r\n\r\n12", "345", "67", "890tail")

	require.True(t, done)
	require.True(t, verdict.OK)
	require.Equal(t, "1234567890", string(request.Body))
	require.Equal(t, "tail", verdict.Rest)
}

func TestParseFailures(t *testing.T) {
	cases := map[string]string{
		"one-part request line":   "FOO\r\n\r\n",
		"four-part request line":  "GET / HTTP/1.1 extra\r\n\r\n",
		"unknown method":          "FROB / HTTP/1.1\r\n\r\n",
		"absolute form":           "GET http://example.com/ HTTP/1.1\r\n\r\n",
		"bad percent escape":      "GET /a%zz HTTP/1.1\r\n\r\n",
		"truncated escape":        "GET /a%2 HTTP/1.1\r\n\r\n",
		"bad query char":          "GET /a?b=\x01 HTTP/1.1\r\n\r\n",
		"header without colon":    "GET / HTTP/1.1\r\nHost x\r\n\r\n",
		"empty header name":       "GET / HTTP/1.1\r\n: x\r\n\r\n",
		"empty header value":      "GET / HTTP/1.1\r\nHost:\r\n\r\n",
		"blank header value":      "GET / HTTP/1.1\r\nHost:   \r\n\r\n",
		"bad content length":      "POST / HTTP/1.1\r\nContent-Length: five\r\n\r\n",
		"negative content length": "POST / HTTP/1.1\r\nContent-Length: -5\r\n\r\n",
		"bare LF terminator":      "GET / HTTP/1.1\nHost: x\r\n\r\n",
		"bare CR in terminator":   "GET / HTTP/1.1\r\rHost: x\r\n\r\n",
	}

	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			verdict, done := feed(t, newRequest(), input)
			require.True(t, done)
			require.False(t, verdict.OK)
		})
	}
}

// every chunking of byte-identical input must produce the same request
func TestParseChunkBoundaryInvariance(t *testing.T) {
	const input = "POST /some%2Fpath?k=v&x=%41 HTTP/1.1\r\n" +
		"Host: example\r\n" +
		"Content-Length: 6\r\n" +
		"\r\n" +
		"abc\r\nzrest"

	// parse returns the request and the leftover: the verdict's Rest plus any
	// chunks the parser finished before being sent
	parse := func(chunks ...string) (*http.Request, string) {
		request := newRequest()
		task := New(config.Default().HTTP).Run(request)

		verdict, done, sent := Verdict{}, false, 0
		for sent < len(chunks) && !done {
			verdict, done = task.Send(chunks[sent])
			sent++
		}

		require.True(t, done)
		require.True(t, verdict.OK)
		return request, verdict.Rest + strings.Join(chunks[sent:], "")
	}

	want, wantRest := parse(input)

	for split := 1; split < len(input); split++ {
		got, gotRest := parse(input[:split], input[split:])

		require.Equal(t, want.Method, got.Method)
		require.Equal(t, want.Target, got.Target)
		require.Equal(t, want.Version, got.Version)
		require.Equal(t, want.Headers.Len(), got.Headers.Len())
		require.Equal(t, string(want.Body), string(got.Body))
		require.Equal(t, wantRest, gotRest)
	}

	// byte-at-a-time is the nastiest chunking of all
	chunks := make([]string, 0, len(input))
	for i := 0; i < len(input); i++ {
		chunks = append(chunks, input[i:i+1])
	}

	got, gotRest := parse(chunks...)
	require.Equal(t, want.Target, got.Target)
	require.Equal(t, string(want.Body), string(got.Body))
	require.Equal(t, wantRest, gotRest)
}

// consumed input plus the leftover must re-assemble the driver's input
func TestParseConsumedPlusRest(t *testing.T) {
	const request = "POST /p HTTP/1.1\r\nContent-Length: 4\r\n\r\nbody"
	const extra = "GET / HTTP/1.1\r\n\r\n"

	verdict, done := feed(t, newRequest(), request+extra)
	require.True(t, done)
	require.True(t, verdict.OK)
	require.Equal(t, extra, verdict.Rest)
}

// serialize a randomized request, parse it back, compare
func TestParseSerializedRoundTrip(t *testing.T) {
	for i := 0; i < 50; i++ {
		headerValue := uniuri.New()
		body := uniuri.NewLen(80)

		var wire strings.Builder
		wire.WriteString("PUT /items/")
		wire.WriteString(uniuri.NewLenChars(10, []byte("abcdefghijklmnopqrstuvwxyz0123456789")))
		wire.WriteString(" HTTP/1.1\r\nX-Token: ")
		wire.WriteString(headerValue)
		wire.WriteString("\r\nContent-Length: ")
		wire.WriteString(strconv.Itoa(len(body)))
		wire.WriteString("\r\n\r\n")
		wire.WriteString(body)

		request := newRequest()
		verdict, done := feed(t, request, wire.String())

		require.True(t, done)
		require.True(t, verdict.OK)
		require.Equal(t, method.PUT, request.Method)
		require.Equal(t, headerValue, request.Headers.Value("X-Token"))
		require.Equal(t, body, string(request.Body))
		require.Empty(t, verdict.Rest)
	}
}
