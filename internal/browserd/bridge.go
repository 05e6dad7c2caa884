package browserd

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/CodeMonkeyCybersecurity/sharingan/internal/config"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/logger"
)

// legacyCommand mirrors the flat JSON blob older automation drops on
// disk.
type legacyCommand struct {
	Type      string                 `json:"type"`
	Params    map[string]interface{} `json:"params"`
	Timestamp float64                `json:"timestamp"`
}

// Bridge keeps file-based automation working against the RPC daemon.
// It watches the legacy command file, forwards each drop over the
// client and writes the acknowledgment to the legacy result file.
type Bridge struct {
	cfg     config.BrowserConfig
	client  *Client
	log     *logger.Logger
	watcher *fsnotify.Watcher
	done    chan struct{}
}

func NewBridge(cfg config.BrowserConfig, client *Client, log *logger.Logger) *Bridge {
	return &Bridge{
		cfg:    cfg,
		client: client,
		log:    log.WithComponent("legacy-bridge"),
	}
}

// Start watches the command file's directory and reacts to drops as
// they land. A command already waiting on disk is consumed immediately.
func (b *Bridge) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	dir := filepath.Dir(b.cfg.LegacyCmdFile)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		watcher.Close()
		return err
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return err
	}
	b.watcher = watcher
	b.done = make(chan struct{})
	b.log.Infow("Legacy bridge watching", "file", b.cfg.LegacyCmdFile)

	b.handleCommand(ctx)

	go b.run(ctx)
	return nil
}

// Stop tears down the watcher and waits for the event loop to exit.
func (b *Bridge) Stop() {
	if b.watcher != nil {
		_ = b.watcher.Close()
	}
	if b.done != nil {
		<-b.done
	}
}

func (b *Bridge) run(ctx context.Context) {
	defer close(b.done)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-b.watcher.Events:
			if !ok {
				return
			}
			if event.Name != b.cfg.LegacyCmdFile {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			b.handleCommand(ctx)
		case err, ok := <-b.watcher.Errors:
			if !ok {
				return
			}
			b.log.Warnw("Watcher error", "error", err)
		}
	}
}

func (b *Bridge) handleCommand(ctx context.Context) {
	data, err := os.ReadFile(b.cfg.LegacyCmdFile)
	if err != nil {
		// Create and Write fire for the same drop; the second read
		// finds the file already consumed.
		if !os.IsNotExist(err) {
			b.log.Warnw("Failed to read command file", "error", err)
		}
		return
	}
	if len(data) == 0 {
		// Create fired before the writer's content landed; the Write
		// event retries.
		return
	}
	_ = os.Remove(b.cfg.LegacyCmdFile)

	var cmd legacyCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		b.log.Warnw("Malformed legacy command", "error", err)
		b.writeResult(Response{Status: StatusError, Message: "malformed command: " + err.Error()})
		return
	}

	cmdType := cmd.Type
	switch cmdType {
	case "stop":
		cmdType = CmdClose
	case "status":
		cmdType = CmdInfo
	}

	resp, err := b.client.Do(ctx, cmdType, cmd.Params)
	if err != nil {
		b.writeResult(Response{Status: StatusError, Message: err.Error()})
		return
	}
	b.log.Debugw("Legacy command forwarded", "type", cmd.Type, "status", resp.Status)
	b.writeResult(*resp)
}

// writeResult flattens the acknowledgment into the flat blob legacy
// readers expect.
func (b *Bridge) writeResult(resp Response) {
	out := map[string]interface{}{"status": resp.Status}
	if resp.Message != "" {
		out["message"] = resp.Message
	}
	for k, v := range resp.Data {
		out[k] = v
	}

	data, err := json.Marshal(out)
	if err != nil {
		b.log.Warnw("Failed to encode legacy result", "error", err)
		return
	}
	if err := os.WriteFile(b.cfg.LegacyOutFile, append(data, '\n'), 0o644); err != nil {
		b.log.Warnw("Failed to write legacy result", "error", err)
	}
}
