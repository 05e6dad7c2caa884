package browserd

import "context"

// PageInfo summarizes the rendered document for the info command.
type PageInfo struct {
	URL    string `json:"url"`
	Title  string `json:"title"`
	Links  int    `json:"links"`
	Forms  int    `json:"forms"`
	Inputs int    `json:"inputs"`
}

// Element describes one matched node for the list command.
type Element struct {
	Tag  string `json:"tag"`
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
	Href string `json:"href,omitempty"`
	Text string `json:"text,omitempty"`
}

// Driver abstracts the browser behind the daemon so the server logic
// does not depend on a running Chrome. Implementations are not safe
// for concurrent use; the server serializes commands.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	Info(ctx context.Context) (*PageInfo, error)
	Screenshot(ctx context.Context, path string) error
	Scroll(ctx context.Context, pixels int) error
	Evaluate(ctx context.Context, script string) (string, error)
	Fill(ctx context.Context, selector, value string) error
	Click(ctx context.Context, selector string) error
	Elements(ctx context.Context, selector string) ([]Element, error)
	Close() error
}
