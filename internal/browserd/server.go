// Package browserd runs the loopback browser-control daemon and its
// client. Commands travel as newline-delimited JSON frames over TCP and
// every frame gets an acknowledgment, so callers time out cleanly
// instead of polling files for results.
package browserd

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/CodeMonkeyCybersecurity/sharingan/internal/config"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/logger"
)

// maxFrameSize bounds one request line. Scripts for the js command are
// the largest payload that travels this way.
const maxFrameSize = 1 << 20

// Server accepts framed commands and relays them to the Driver. Many
// connections may be open at once; commands run one at a time because
// there is one browser.
type Server struct {
	cfg    config.BrowserConfig
	driver Driver
	log    *logger.Logger

	ln net.Listener

	cmdMu  sync.Mutex
	connMu sync.Mutex
	conns  map[net.Conn]struct{}

	wg      sync.WaitGroup
	closed  chan struct{}
	stopped chan struct{}
	once    sync.Once
}

func NewServer(cfg config.BrowserConfig, driver Driver, log *logger.Logger) *Server {
	return &Server{
		cfg:     cfg,
		driver:  driver,
		log:     log.WithComponent("browserd"),
		conns:   make(map[net.Conn]struct{}),
		closed:  make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Start binds the listener and begins accepting connections. It returns
// immediately; use Wait to block until the daemon exits.
func (s *Server) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.ln = ln
	s.log.Infow("Browser daemon listening", "addr", ln.Addr().String())

	go func() {
		select {
		case <-ctx.Done():
			s.Shutdown()
		case <-s.closed:
		}
	}()

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// Port reports the bound port, which differs from the configured one
// when the daemon was started on port 0.
func (s *Server) Port() int {
	return s.ln.Addr().(*net.TCPAddr).Port
}

// Wait blocks until the daemon has fully stopped.
func (s *Server) Wait() {
	<-s.stopped
}

// Shutdown closes the listener, disconnects clients, waits for handlers
// to drain and stops the browser. Safe to call more than once.
func (s *Server) Shutdown() {
	s.once.Do(func() {
		close(s.closed)
		if s.ln != nil {
			_ = s.ln.Close()
		}
		s.connMu.Lock()
		for conn := range s.conns {
			_ = conn.Close()
		}
		s.connMu.Unlock()
		s.wg.Wait()

		if err := s.driver.Close(); err != nil {
			s.log.Debugw("Driver close failed", "error", err)
		}
		s.log.Infow("Browser daemon stopped")
		close(s.stopped)
	})
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				s.log.Warnw("Accept failed", "error", err)
			}
			return
		}
		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	s.connMu.Lock()
	s.conns[conn] = struct{}{}
	s.connMu.Unlock()
	defer func() {
		s.connMu.Lock()
		delete(s.conns, conn)
		s.connMu.Unlock()
	}()

	select {
	case <-s.closed:
		return
	default:
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), maxFrameSize)
	enc := json.NewEncoder(conn)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			_ = enc.Encode(fail("", "malformed frame: "+err.Error()))
			continue
		}

		resp := s.dispatch(&req)
		if err := enc.Encode(resp); err != nil {
			s.log.Debugw("Client write failed", "error", err)
			return
		}
		if req.Type == CmdClose {
			go s.Shutdown()
			return
		}
	}
}

func (s *Server) dispatch(req *Request) Response {
	// One browser, so commands queue here rather than interleave.
	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()

	timeout := s.cfg.CommandTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.log.Debugw("Command received", "type", req.Type, "id", req.ID)

	switch req.Type {
	case CmdInfo:
		return s.handleInfo(ctx, req)
	case CmdNavigate:
		return s.handleNavigate(ctx, req)
	case CmdScreenshot:
		return s.handleScreenshot(ctx, req)
	case CmdScroll:
		return s.handleScroll(ctx, req)
	case CmdJS:
		return s.handleJS(ctx, req)
	case CmdFill:
		return s.handleFill(ctx, req)
	case CmdClick:
		return s.handleClick(ctx, req)
	case CmdList:
		return s.handleList(ctx, req)
	case CmdClose:
		return Response{ID: req.ID, Status: StatusSuccess, Message: "shutting down"}
	default:
		return fail(req.ID, fmt.Sprintf("unknown command: %s", req.Type))
	}
}

func (s *Server) handleInfo(ctx context.Context, req *Request) Response {
	info, err := s.driver.Info(ctx)
	if err != nil {
		return fail(req.ID, err.Error())
	}
	return ok(req.ID, map[string]interface{}{
		"url":    info.URL,
		"title":  info.Title,
		"links":  info.Links,
		"forms":  info.Forms,
		"inputs": info.Inputs,
	})
}

func (s *Server) handleNavigate(ctx context.Context, req *Request) Response {
	url := paramString(req.Params, "url")
	if url == "" {
		return fail(req.ID, "navigate requires a url parameter")
	}
	// Bare hosts default to https.
	if !strings.Contains(url, "://") {
		url = "https://" + url
	}
	if err := s.driver.Navigate(ctx, url); err != nil {
		return fail(req.ID, err.Error())
	}
	return ok(req.ID, map[string]interface{}{"url": url})
}

func (s *Server) handleScreenshot(ctx context.Context, req *Request) Response {
	path := paramString(req.Params, "path")
	if path == "" {
		path = filepath.Join(s.cfg.ScreenshotDir, fmt.Sprintf("sharingan_screenshot_%d.png", time.Now().Unix()))
	}
	if err := s.driver.Screenshot(ctx, path); err != nil {
		return fail(req.ID, err.Error())
	}
	return ok(req.ID, map[string]interface{}{"path": path})
}

func (s *Server) handleScroll(ctx context.Context, req *Request) Response {
	pixels := paramInt(req.Params, "pixels", 500)
	if paramString(req.Params, "direction") == "up" {
		pixels = -pixels
	}
	if err := s.driver.Scroll(ctx, pixels); err != nil {
		return fail(req.ID, err.Error())
	}
	return ok(req.ID, map[string]interface{}{"scrolled": pixels})
}

func (s *Server) handleJS(ctx context.Context, req *Request) Response {
	script := paramString(req.Params, "script")
	if script == "" {
		return fail(req.ID, "js requires a script parameter")
	}
	value, err := s.driver.Evaluate(ctx, script)
	if err != nil {
		return fail(req.ID, err.Error())
	}
	return ok(req.ID, map[string]interface{}{"value": value})
}

func (s *Server) handleFill(ctx context.Context, req *Request) Response {
	selector := paramString(req.Params, "selector")
	if selector == "" {
		return fail(req.ID, "fill requires a selector parameter")
	}
	if err := s.driver.Fill(ctx, selector, paramString(req.Params, "value")); err != nil {
		return fail(req.ID, err.Error())
	}
	return ok(req.ID, map[string]interface{}{"selector": selector})
}

func (s *Server) handleClick(ctx context.Context, req *Request) Response {
	selector := paramString(req.Params, "selector")
	if selector == "" {
		return fail(req.ID, "click requires a selector parameter")
	}
	if err := s.driver.Click(ctx, selector); err != nil {
		return fail(req.ID, err.Error())
	}
	return ok(req.ID, map[string]interface{}{"selector": selector})
}

func (s *Server) handleList(ctx context.Context, req *Request) Response {
	selector := paramString(req.Params, "selector")
	if selector == "" {
		selector = "a, form, input, button"
	}
	elements, err := s.driver.Elements(ctx, selector)
	if err != nil {
		return fail(req.ID, err.Error())
	}
	return ok(req.ID, map[string]interface{}{
		"count":    len(elements),
		"elements": elements,
	})
}

func ok(id string, data map[string]interface{}) Response {
	return Response{ID: id, Status: StatusSuccess, Data: data}
}

func fail(id, message string) Response {
	return Response{ID: id, Status: StatusError, Message: message}
}
