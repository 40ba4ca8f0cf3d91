// Package httpparse implements a streaming HTTP/1.1 request parser as a
// sendable task. The driver feeds it successive chunks read from a socket;
// the parser suspends whenever it runs out of input mid-message and, once
// the message is complete, finishes with the unconsumed tail of the last
// chunk.
package httpparse

import (
	"strings"

	"github.com/indigo-web/utils/buffer"
	"github.com/indigo-web/utils/uf"

	"github.com/ember-web/ember/config"
	"github.com/ember-web/ember/coro"
	"github.com/ember-web/ember/http"
	"github.com/ember-web/ember/http/method"
	"github.com/ember-web/ember/internal/strutil"
)

const crlf = "\r\n"

var cr = []byte{'\r'}

// Verdict is what a parser task finishes with. OK=false means the message
// is malformed and the connection must be answered with 400. On success
// Rest holds the unconsumed tail of the last chunk; it aliases that chunk,
// so it must be consumed (or copied) before the read buffer is re-used.
type Verdict struct {
	Rest string
	OK   bool
}

type Parser struct {
	cfg config.HTTP
}

func New(cfg config.HTTP) Parser {
	return Parser{cfg: cfg}
}

// Run spawns a parser task for a single message. The request object is
// filled in place; everything stored into it owns its memory, only the
// verdict's Rest aliases the caller's chunk.
func (p Parser) Run(request *http.Request) *coro.Task[string, Verdict] {
	return coro.Spawn(func(recv func() string) Verdict {
		data := recv()
		line := buffer.New(p.cfg.LineBuffer.Default, p.cfg.LineBuffer.Maximal)
		pendingCR := false

		// getLine returns the next CRLF-terminated line without its
		// terminator, suspending for more input as needed. The view stays
		// valid only until the next call.
		getLine := func() (view string, ok bool) {
		scan:
			for {
				if pendingCR {
					// the accumulated chunk ended right after a CR; only
					// the next byte tells whether it terminated the line
					if data == "" {
						data = recv()
						continue
					}

					pendingCR = false
					if data[0] != '\n' {
						// a bare CR, it belongs to the line content
						if !line.Append(cr) {
							return "", false
						}
						continue
					}

					data = data[1:]
					view = uf.B2S(line.Finish())
					line.Clear()
					break scan
				}

				if i := strings.Index(data, crlf); i >= 0 {
					if line.SegmentLength() == 0 {
						view = data[:i]
					} else {
						if !line.Append(uf.S2B(data[:i])) {
							return "", false
						}
						view = uf.B2S(line.Finish())
						line.Clear()
					}

					data = data[i+2:]
					break scan
				}

				// no full terminator in this chunk: stash it, minus a
				// trailing CR that may pair with an LF from the next one
				chunk := data
				if len(chunk) > 0 && chunk[len(chunk)-1] == '\r' {
					pendingCR = true
					chunk = chunk[:len(chunk)-1]
				}
				if !line.Append(uf.S2B(chunk)) {
					return "", false
				}

				data = recv()
			}

			// lines terminate strictly with CRLF, so a lone LF inside
			// one is a wire error
			if strings.IndexByte(view, '\n') >= 0 {
				return "", false
			}

			return view, true
		}

		reqLine, ok := getLine()
		if !ok {
			return Verdict{}
		}

		parts := strings.Split(reqLine, " ")
		if len(parts) != 3 {
			return Verdict{}
		}

		m := method.Parse(parts[0])
		if m == method.Unknown {
			return Verdict{}
		}

		target, ok := ParseTarget(parts[1])
		if !ok {
			return Verdict{}
		}

		request.Method = m
		request.Target = target
		request.Version = strings.Clone(parts[2])

		for {
			hline, ok := getLine()
			if !ok {
				return Verdict{}
			}
			if hline == "" {
				// the empty line terminates the header section
				break
			}

			key := token(hline, isTchar)
			rest := hline[len(key):]
			if key == "" || rest == "" || rest[0] != ':' {
				return Verdict{}
			}

			value := strutil.TrimWS(token(rest[1:], isValueChar))
			if value == "" {
				return Verdict{}
			}

			request.Headers.Add(strings.Clone(key), strings.Clone(value))
		}

		if cl, found := request.Headers.Get("Content-Length"); found {
			n, ok := parseUint(cl)
			if !ok || n > p.cfg.Body.MaxSize {
				return Verdict{}
			}

			if n > 0 {
				prealloc := n
				if max := uint64(p.cfg.Body.Prealloc); prealloc > max {
					prealloc = max
				}

				body := make([]byte, 0, prealloc)
				for uint64(len(body)) < n {
					need := n - uint64(len(body))
					if need >= uint64(len(data)) {
						body = append(body, data...)
						data = ""
						if uint64(len(body)) < n {
							data = recv()
						}
					} else {
						body = append(body, data[:need]...)
						data = data[need:]
					}
				}

				request.Body = body
			}
		}

		return Verdict{Rest: data, OK: true}
	})
}

// token returns the longest prefix of str consisting of valid characters.
func token(str string, valid func(byte) bool) string {
	for i := 0; i < len(str); i++ {
		if !valid(str[i]) {
			return str[:i]
		}
	}

	return str
}

// isValueChar admits the header value characters: tokens, spaces and
// horizontal tabs. Surrounding whitespace is trimmed before storing.
func isValueChar(c byte) bool {
	return isTchar(c) || c == ' ' || c == '\t'
}

// parseUint is a strict base-10 parser for Content-Length: digits only, no
// signs, no whitespace.
func parseUint(str string) (n uint64, ok bool) {
	if str == "" {
		return 0, false
	}

	for i := 0; i < len(str); i++ {
		c := str[i]
		if c < '0' || c > '9' {
			return 0, false
		}

		n = n*10 + uint64(c-'0')
		if n > 1<<53 {
			return 0, false
		}
	}

	return n, true
}
