package browserd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/CodeMonkeyCybersecurity/sharingan/internal/config"
)

// ErrNotRunning reports that nothing answered on the daemon port.
var ErrNotRunning = errors.New("browser daemon is not running")

const dialTimeout = 3 * time.Second

// Client sends one framed command per connection and waits for its
// acknowledgment. Safe for concurrent use.
type Client struct {
	addr    string
	timeout time.Duration
}

func NewClient(cfg config.BrowserConfig) *Client {
	timeout := cfg.CommandTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		addr:    net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		timeout: timeout,
	}
}

// Do sends a single request and returns the daemon's acknowledgment.
// An error return means the exchange itself failed; command failures
// come back as a Response with an error status.
func (c *Client) Do(ctx context.Context, cmdType string, params map[string]interface{}) (*Response, error) {
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotRunning, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)

	req := Request{ID: uuid.New().String(), Type: cmdType, Params: params}
	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return nil, fmt.Errorf("failed to send %s command: %w", cmdType, err)
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return nil, fmt.Errorf("no acknowledgment for %s command: %w", cmdType, err)
	}
	if resp.ID != "" && resp.ID != req.ID {
		return nil, fmt.Errorf("acknowledgment for request %s does not match request %s", resp.ID, req.ID)
	}
	return &resp, nil
}

func (c *Client) Info(ctx context.Context) (*Response, error) {
	return c.Do(ctx, CmdInfo, nil)
}

func (c *Client) Navigate(ctx context.Context, url string) (*Response, error) {
	return c.Do(ctx, CmdNavigate, map[string]interface{}{"url": url})
}

// Screenshot captures the current page. An empty path lets the daemon
// pick a timestamped file in its screenshot directory.
func (c *Client) Screenshot(ctx context.Context, path string) (*Response, error) {
	params := map[string]interface{}{}
	if path != "" {
		params["path"] = path
	}
	return c.Do(ctx, CmdScreenshot, params)
}

func (c *Client) Scroll(ctx context.Context, pixels int, direction string) (*Response, error) {
	params := map[string]interface{}{"pixels": pixels}
	if direction != "" {
		params["direction"] = direction
	}
	return c.Do(ctx, CmdScroll, params)
}

func (c *Client) Eval(ctx context.Context, script string) (*Response, error) {
	return c.Do(ctx, CmdJS, map[string]interface{}{"script": script})
}

func (c *Client) Fill(ctx context.Context, selector, value string) (*Response, error) {
	return c.Do(ctx, CmdFill, map[string]interface{}{"selector": selector, "value": value})
}

func (c *Client) Click(ctx context.Context, selector string) (*Response, error) {
	return c.Do(ctx, CmdClick, map[string]interface{}{"selector": selector})
}

func (c *Client) List(ctx context.Context, selector string) (*Response, error) {
	params := map[string]interface{}{}
	if selector != "" {
		params["selector"] = selector
	}
	return c.Do(ctx, CmdList, params)
}

// Close asks the daemon to shut down. The acknowledgment arrives before
// the daemon exits.
func (c *Client) Close(ctx context.Context) (*Response, error) {
	return c.Do(ctx, CmdClose, nil)
}
