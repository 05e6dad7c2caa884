package browserd

import "strconv"

// Commands understood by the daemon.
const (
	CmdInfo       = "info"
	CmdNavigate   = "navigate"
	CmdScreenshot = "screenshot"
	CmdScroll     = "scroll"
	CmdJS         = "js"
	CmdFill       = "fill"
	CmdClick      = "click"
	CmdList       = "list"
	CmdClose      = "close"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Request is one framed command on the daemon socket. Frames are
// newline-delimited JSON in both directions.
type Request struct {
	ID     string                 `json:"id"`
	Type   string                 `json:"type"`
	Params map[string]interface{} `json:"params,omitempty"`
}

// Response acknowledges exactly one Request, matched by ID. Status is
// always set; Message carries the error text, Data the command output.
type Response struct {
	ID      string                 `json:"id"`
	Status  string                 `json:"status"`
	Message string                 `json:"message,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// Err converts an error acknowledgment into a Go error.
func (r *Response) Err() error {
	if r.Status == StatusSuccess {
		return nil
	}
	if r.Message != "" {
		return &CommandError{Message: r.Message}
	}
	return &CommandError{Message: "command failed"}
}

// CommandError is a daemon-side failure relayed in an acknowledgment.
type CommandError struct {
	Message string
}

func (e *CommandError) Error() string {
	return e.Message
}

func paramString(params map[string]interface{}, key string) string {
	if v, ok := params[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// paramInt tolerates both JSON numbers and quoted digits; legacy
// command files carry either.
func paramInt(params map[string]interface{}, key string, def int) int {
	v, ok := params[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case string:
		if i, err := strconv.Atoi(n); err == nil {
			return i
		}
	}
	return def
}
