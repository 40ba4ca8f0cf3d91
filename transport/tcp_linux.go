//go:build linux

// Package transport owns the listening socket and the reactor-driven
// accept loop. Connections are raw fds: all per-connection I/O goes
// through reactor awaiters, not net.Conn.
package transport

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/ember-web/ember/config"
	"github.com/ember-web/ember/reactor"
)

type TCP struct {
	fd   int
	stop *atomic.Bool
	wg   *sync.WaitGroup
}

func NewTCP() *TCP {
	return &TCP{
		fd:   -1,
		stop: new(atomic.Bool),
		wg:   new(sync.WaitGroup),
	}
}

// Bind resolves addr, opens the listening socket and starts listening.
func (t *TCP) Bind(addr string) error {
	tcpaddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return err
	}

	var (
		family int
		sa     unix.Sockaddr
	)
	if ip4 := tcpaddr.IP.To4(); ip4 != nil || tcpaddr.IP == nil {
		inet4 := &unix.SockaddrInet4{Port: tcpaddr.Port}
		if ip4 != nil {
			copy(inet4.Addr[:], ip4)
		}
		family, sa = unix.AF_INET, inet4
	} else {
		inet6 := &unix.SockaddrInet6{Port: tcpaddr.Port}
		copy(inet6.Addr[:], tcpaddr.IP.To16())
		family, sa = unix.AF_INET6, inet6
	}

	fd, err := unix.Socket(family, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return fmt.Errorf("socket: %w", err)
	}

	if err = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		_ = unix.Close(fd)
		return fmt.Errorf("setsockopt: %w", err)
	}

	if err = unix.Bind(fd, sa); err != nil {
		_ = unix.Close(fd)
		return fmt.Errorf("bind: %w", err)
	}

	if err = unix.Listen(fd, unix.SOMAXCONN); err != nil {
		_ = unix.Close(fd)
		return fmt.Errorf("listen: %w", err)
	}

	t.fd = fd

	return nil
}

// Listen accepts connections until Stop, handing each accepted fd to cb on
// its own goroutine. The pending accept is bounded by the interrupt period,
// so a stop request is noticed timely.
func (t *TCP) Listen(r *reactor.Reactor, cfg config.NET, cb func(fd int)) error {
	for !t.stop.Load() {
		var (
			addr    unix.RawSockaddrAny
			addrLen = uint32(unsafe.Sizeof(addr))
		)

		op := reactor.LinkTimeout(
			reactor.Accept(t.fd, &addr, &addrLen, unix.SOCK_CLOEXEC),
			cfg.AcceptLoopInterruptPeriod,
		)

		res, ok := op.AwaitOn(r)
		if !ok {
			if !r.Accepting() {
				return nil
			}
			// the interrupt timer fired, check the stop flag and re-arm
			continue
		}

		if res.Res < 0 {
			return fmt.Errorf("accept: %w", res.Err())
		}

		connFd := int(res.Res)
		t.wg.Add(1)
		go func() {
			cb(connFd)
			_ = unix.Close(connFd)
			t.wg.Done()
		}()
	}

	return nil
}

func (t *TCP) Stop() {
	t.stop.Store(true)
}

func (t *TCP) Close() {
	if t.fd >= 0 {
		_ = unix.Close(t.fd)
		t.fd = -1
	}
}

func (t *TCP) Wait() {
	t.wg.Wait()
}
