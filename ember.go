//go:build linux

// Package ember is a single-host HTTP/1.1 server running on an io_uring
// reactor: every socket operation is an awaiter, every connection a
// goroutine parked on the ring, and request parsing a sendable task fed
// straight from the read buffer.
package ember

import (
	"log"
	"strings"

	"github.com/indigo-web/utils/uf"
	"github.com/valyala/bytebufferpool"

	"github.com/ember-web/ember/config"
	"github.com/ember-web/ember/http"
	"github.com/ember-web/ember/http/status"
	"github.com/ember-web/ember/httpparse"
	"github.com/ember-web/ember/internal/strutil"
	"github.com/ember-web/ember/kv"
	"github.com/ember-web/ember/reactor"
	"github.com/ember-web/ember/render"
	"github.com/ember-web/ember/transport"
)

type Handler func(*http.Request) *http.Response

type App struct {
	cfg     *config.Config
	handler Handler
	tcp     *transport.TCP
	r       *reactor.Reactor
}

func New() *App {
	return &App{
		cfg: config.Default(),
		tcp: transport.NewTCP(),
		handler: func(*http.Request) *http.Response {
			return http.Respond().Error(status.NotFound)
		},
	}
}

// Tune replaces the default config. Must be called before Serve.
func (a *App) Tune(cfg *config.Config) *App {
	a.cfg = cfg
	return a
}

// OnRequest installs the handler invoked for every parsed request.
func (a *App) OnRequest(handler Handler) *App {
	a.handler = handler
	return a
}

// Serve binds addr and blocks serving connections until Stop. The reactor
// is torn down before returning.
func (a *App) Serve(addr string) error {
	r, err := reactor.New(a.cfg.Ring)
	if err != nil {
		return err
	}
	a.r = r

	if err = a.tcp.Bind(addr); err != nil {
		r.RequestStop()
		r.Run()
		return err
	}

	err = a.tcp.Listen(r, a.cfg.NET, a.serve)
	if err != nil {
		log.Printf("ember: accept loop: %v", err)
	}

	a.tcp.Close()
	a.tcp.Wait()
	r.RequestStop()
	r.Run()

	return err
}

// Stop interrupts the accept loop; the stop flag is noticed once the pending
// accept returns or its interrupt period elapses. Open connections are not
// interrupted: Serve waits for each to end on its own (EOF, error, read
// timeout or a closing response) before it returns.
func (a *App) Stop() {
	a.tcp.Stop()
}

// serve runs a single connection: read awaiters feed the parser task,
// completed requests go through the handler, responses through a write
// awaiter. The connection closes on EOF, error, timeout, parse failure or
// an explicit Connection: close.
func (a *App) serve(fd int) {
	parser := httpparse.New(a.cfg.HTTP)
	request := http.NewRequest(kv.NewPrealloc(a.cfg.HTTP.HeadersPrealloc))
	readBuf := make([]byte, a.cfg.NET.ReadBufferSize)

	// bytes following the previous message in the same read
	pending := ""

	for {
		task := parser.Run(request)

		verdict, done := httpparse.Verdict{}, false
		if pending != "" {
			verdict, done = task.Send(pending)
			pending = ""
		}

		for !done {
			op := reactor.LinkTimeout(reactor.Read(fd, readBuf, 0), a.cfg.NET.ReadTimeout)
			res, ok := op.AwaitOn(a.r)
			if !ok || res.Res <= 0 {
				task.Stop()
				return
			}

			verdict, done = task.Send(uf.B2S(readBuf[:res.Res]))
		}

		if !verdict.OK {
			a.respond(fd, http.Respond().Error(status.BadRequest))
			return
		}

		// the tail aliases readBuf, which the next read overwrites
		pending = strings.Clone(verdict.Rest)

		resp := a.invoke(request)
		if !a.respond(fd, resp) || resp.Close || wantsClose(request) {
			return
		}

		request.Reset()
	}
}

func (a *App) invoke(request *http.Request) (resp *http.Response) {
	defer func() {
		if p := recover(); p != nil {
			log.Printf("ember: handler panic: %v", p)
			resp = http.Respond().Error(status.InternalServerError)
		}
	}()

	resp = a.handler(request)
	if resp == nil {
		resp = http.Respond().Error(status.InternalServerError)
	}

	return resp
}

func (a *App) respond(fd int, resp *http.Response) bool {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	render.Render(resp, buf)

	rest := buf.B
	for len(rest) > 0 {
		res, ok := reactor.Write(fd, rest, 0).AwaitOn(a.r)
		if !ok || res.Res <= 0 {
			return false
		}

		rest = rest[res.Res:]
	}

	return true
}

func wantsClose(request *http.Request) bool {
	return strutil.CmpFold(request.Headers.Value("Connection"), "close")
}
