package browserd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/CodeMonkeyCybersecurity/sharingan/internal/config"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/logger"
)

type stubDriver struct {
	mu       sync.Mutex
	calls    []string
	info     *PageInfo
	elements []Element
	evalOut  string
	err      error
	closed   bool
}

func (d *stubDriver) record(call string) {
	d.mu.Lock()
	d.calls = append(d.calls, call)
	d.mu.Unlock()
}

func (d *stubDriver) recorded() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.calls))
	copy(out, d.calls)
	return out
}

func (d *stubDriver) wasClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

func (d *stubDriver) Navigate(_ context.Context, url string) error {
	d.record("navigate " + url)
	return d.err
}

func (d *stubDriver) Info(context.Context) (*PageInfo, error) {
	d.record("info")
	if d.err != nil {
		return nil, d.err
	}
	return d.info, nil
}

func (d *stubDriver) Screenshot(_ context.Context, path string) error {
	d.record("screenshot " + path)
	return d.err
}

func (d *stubDriver) Scroll(_ context.Context, pixels int) error {
	d.record(fmt.Sprintf("scroll %d", pixels))
	return d.err
}

func (d *stubDriver) Evaluate(_ context.Context, script string) (string, error) {
	d.record("js " + script)
	return d.evalOut, d.err
}

func (d *stubDriver) Fill(_ context.Context, selector, value string) error {
	d.record("fill " + selector + "=" + value)
	return d.err
}

func (d *stubDriver) Click(_ context.Context, selector string) error {
	d.record("click " + selector)
	return d.err
}

func (d *stubDriver) Elements(_ context.Context, selector string) ([]Element, error) {
	d.record("list " + selector)
	return d.elements, d.err
}

func (d *stubDriver) Close() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	return nil
}

func newTestDaemon(t *testing.T, driver *stubDriver) (*Server, *Client) {
	t.Helper()

	log, err := logger.New(config.LoggerConfig{Level: "error", Format: "console"})
	require.NoError(t, err)

	cfg := config.BrowserConfig{
		Host:           "127.0.0.1",
		Port:           0,
		CommandTimeout: 2 * time.Second,
		ScreenshotDir:  t.TempDir(),
	}
	srv := NewServer(cfg, driver, log)
	require.NoError(t, srv.Start(context.Background()))
	t.Cleanup(srv.Shutdown)

	clientCfg := cfg
	clientCfg.Port = srv.Port()
	return srv, NewClient(clientCfg)
}

func TestServer_Navigate(t *testing.T) {
	driver := &stubDriver{}
	_, client := newTestDaemon(t, driver)

	resp, err := client.Navigate(context.Background(), "example.com")
	require.NoError(t, err)
	require.NoError(t, resp.Err())
	assert.Equal(t, "https://example.com", resp.Data["url"])
	assert.Contains(t, driver.recorded(), "navigate https://example.com")
}

func TestServer_NavigateRequiresURL(t *testing.T) {
	_, client := newTestDaemon(t, &stubDriver{})

	resp, err := client.Do(context.Background(), CmdNavigate, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusError, resp.Status)
	assert.Contains(t, resp.Message, "url")
}

func TestServer_Info(t *testing.T) {
	driver := &stubDriver{info: &PageInfo{
		URL:   "https://example.com/login",
		Title: "Sign in",
		Links: 4,
		Forms: 1,
	}}
	_, client := newTestDaemon(t, driver)

	resp, err := client.Info(context.Background())
	require.NoError(t, err)
	require.NoError(t, resp.Err())
	assert.Equal(t, "https://example.com/login", resp.Data["url"])
	assert.Equal(t, "Sign in", resp.Data["title"])
	assert.Equal(t, float64(4), resp.Data["links"])
}

func TestServer_Scroll(t *testing.T) {
	driver := &stubDriver{}
	_, client := newTestDaemon(t, driver)

	resp, err := client.Scroll(context.Background(), 300, "up")
	require.NoError(t, err)
	require.NoError(t, resp.Err())
	assert.Equal(t, float64(-300), resp.Data["scrolled"])
	assert.Contains(t, driver.recorded(), "scroll -300")

	resp, err = client.Do(context.Background(), CmdScroll, nil)
	require.NoError(t, err)
	require.NoError(t, resp.Err())
	assert.Contains(t, driver.recorded(), "scroll 500")
}

func TestServer_Screenshot(t *testing.T) {
	driver := &stubDriver{}
	srv, client := newTestDaemon(t, driver)

	resp, err := client.Screenshot(context.Background(), "")
	require.NoError(t, err)
	require.NoError(t, resp.Err())

	path, _ := resp.Data["path"].(string)
	assert.True(t, strings.HasPrefix(path, srv.cfg.ScreenshotDir), "path %q not under screenshot dir", path)
	assert.True(t, strings.HasSuffix(path, ".png"))
}

func TestServer_JS(t *testing.T) {
	driver := &stubDriver{evalOut: `"example.com"`}
	_, client := newTestDaemon(t, driver)

	resp, err := client.Eval(context.Background(), "document.domain")
	require.NoError(t, err)
	require.NoError(t, resp.Err())
	assert.Equal(t, `"example.com"`, resp.Data["value"])
	assert.Contains(t, driver.recorded(), "js document.domain")
}

func TestServer_FillAndClick(t *testing.T) {
	driver := &stubDriver{}
	_, client := newTestDaemon(t, driver)

	resp, err := client.Fill(context.Background(), "#user", "admin")
	require.NoError(t, err)
	require.NoError(t, resp.Err())

	resp, err = client.Click(context.Background(), "#submit")
	require.NoError(t, err)
	require.NoError(t, resp.Err())

	calls := driver.recorded()
	assert.Contains(t, calls, "fill #user=admin")
	assert.Contains(t, calls, "click #submit")

	resp, err = client.Do(context.Background(), CmdClick, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusError, resp.Status)
}

func TestServer_List(t *testing.T) {
	driver := &stubDriver{elements: []Element{
		{Tag: "a", Href: "/about", Text: "About"},
		{Tag: "input", Name: "q"},
	}}
	_, client := newTestDaemon(t, driver)

	resp, err := client.List(context.Background(), "")
	require.NoError(t, err)
	require.NoError(t, resp.Err())
	assert.Equal(t, float64(2), resp.Data["count"])
	assert.Contains(t, driver.recorded(), "list a, form, input, button")
}

func TestServer_UnknownCommand(t *testing.T) {
	_, client := newTestDaemon(t, &stubDriver{})

	resp, err := client.Do(context.Background(), "teleport", nil)
	require.NoError(t, err)
	assert.Equal(t, StatusError, resp.Status)
	assert.Contains(t, resp.Message, "unknown command")
	assert.Error(t, resp.Err())
}

func TestServer_DriverError(t *testing.T) {
	driver := &stubDriver{err: fmt.Errorf("tab crashed")}
	_, client := newTestDaemon(t, driver)

	resp, err := client.Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusError, resp.Status)
	assert.Contains(t, resp.Message, "tab crashed")
}

func TestServer_MalformedFrame(t *testing.T) {
	srv, _ := newTestDaemon(t, &stubDriver{})

	conn, err := net.Dial("tcp", fmt.Sprintf("127.0.0.1:%d", srv.Port()))
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetDeadline(time.Now().Add(2*time.Second)))

	_, err = fmt.Fprintf(conn, "not json\n")
	require.NoError(t, err)

	scanner := bufio.NewScanner(conn)
	require.True(t, scanner.Scan())

	var resp Response
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &resp))
	assert.Equal(t, StatusError, resp.Status)
	assert.Contains(t, resp.Message, "malformed frame")
}

func TestServer_ConcurrentClients(t *testing.T) {
	driver := &stubDriver{info: &PageInfo{URL: "https://example.com"}}
	_, client := newTestDaemon(t, driver)

	var g errgroup.Group
	for i := 0; i < 4; i++ {
		g.Go(func() error {
			resp, err := client.Info(context.Background())
			if err != nil {
				return err
			}
			return resp.Err()
		})
	}
	require.NoError(t, g.Wait())
	assert.Len(t, driver.recorded(), 4)
}

func TestServer_CloseCommandShutsDown(t *testing.T) {
	driver := &stubDriver{}
	srv, client := newTestDaemon(t, driver)

	resp, err := client.Close(context.Background())
	require.NoError(t, err)
	require.NoError(t, resp.Err())

	done := make(chan struct{})
	go func() {
		srv.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("daemon did not stop after close command")
	}

	assert.True(t, driver.wasClosed())
	_, err = client.Info(context.Background())
	require.ErrorIs(t, err, ErrNotRunning)
}

func TestClient_NotRunning(t *testing.T) {
	// Bind and release a port so nothing is listening on it.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	client := NewClient(config.BrowserConfig{Host: "127.0.0.1", Port: port, CommandTimeout: time.Second})
	_, err = client.Info(context.Background())
	require.ErrorIs(t, err, ErrNotRunning)
}

func newTestBridge(t *testing.T, client *Client) (config.BrowserConfig, *Bridge) {
	t.Helper()

	log, err := logger.New(config.LoggerConfig{Level: "error", Format: "console"})
	require.NoError(t, err)

	dir := t.TempDir()
	cfg := config.BrowserConfig{
		LegacyCmdFile: filepath.Join(dir, "browser_cmd.txt"),
		LegacyOutFile: filepath.Join(dir, "browser_result.txt"),
	}
	bridge := NewBridge(cfg, client, log)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, bridge.Start(ctx))
	t.Cleanup(func() {
		bridge.Stop()
		cancel()
	})
	return cfg, bridge
}

func readLegacyResult(t *testing.T, path string) map[string]interface{} {
	t.Helper()

	var data []byte
	require.Eventually(t, func() bool {
		var err error
		data, err = os.ReadFile(path)
		return err == nil && len(data) > 0
	}, 3*time.Second, 20*time.Millisecond, "no legacy result written")

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestBridge_ForwardsLegacyCommand(t *testing.T) {
	driver := &stubDriver{}
	_, client := newTestDaemon(t, driver)
	cfg, _ := newTestBridge(t, client)

	blob := `{"type": "navigate", "params": {"url": "example.com"}, "timestamp": 1700000000}`
	require.NoError(t, os.WriteFile(cfg.LegacyCmdFile, []byte(blob), 0o644))

	result := readLegacyResult(t, cfg.LegacyOutFile)
	assert.Equal(t, "success", result["status"])
	assert.Equal(t, "https://example.com", result["url"])
	assert.Contains(t, driver.recorded(), "navigate https://example.com")

	// The drop is consumed so a watcher restart cannot replay it.
	_, err := os.Stat(cfg.LegacyCmdFile)
	assert.True(t, os.IsNotExist(err))
}

func TestBridge_StatusAliasesToInfo(t *testing.T) {
	driver := &stubDriver{info: &PageInfo{URL: "https://example.com", Title: "Example"}}
	_, client := newTestDaemon(t, driver)
	cfg, _ := newTestBridge(t, client)

	blob := `{"type": "status", "params": {}, "timestamp": 1700000000}`
	require.NoError(t, os.WriteFile(cfg.LegacyCmdFile, []byte(blob), 0o644))

	result := readLegacyResult(t, cfg.LegacyOutFile)
	assert.Equal(t, "success", result["status"])
	assert.Equal(t, "https://example.com", result["url"])
	assert.Contains(t, driver.recorded(), "info")
}

func TestBridge_MalformedCommand(t *testing.T) {
	_, client := newTestDaemon(t, &stubDriver{})
	cfg, _ := newTestBridge(t, client)

	require.NoError(t, os.WriteFile(cfg.LegacyCmdFile, []byte("{{{ not json"), 0o644))

	result := readLegacyResult(t, cfg.LegacyOutFile)
	assert.Equal(t, "error", result["status"])
	assert.Contains(t, result["message"], "malformed command")
}

func TestBridge_DaemonDown(t *testing.T) {
	// Client pointed at a port nothing listens on.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	client := NewClient(config.BrowserConfig{Host: "127.0.0.1", Port: port, CommandTimeout: time.Second})

	cfg, _ := newTestBridge(t, client)

	blob := `{"type": "info", "params": {}, "timestamp": 1700000000}`
	require.NoError(t, os.WriteFile(cfg.LegacyCmdFile, []byte(blob), 0o644))

	result := readLegacyResult(t, cfg.LegacyOutFile)
	assert.Equal(t, "error", result["status"])
	assert.Contains(t, result["message"], "not running")
}
