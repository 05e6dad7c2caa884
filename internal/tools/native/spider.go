package native

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/CodeMonkeyCybersecurity/sharingan/internal/core"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/httpclient"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/logger"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/tools"
	"github.com/CodeMonkeyCybersecurity/sharingan/pkg/types"
)

var wordPattern = regexp.MustCompile(`[a-zA-ZÀ-ÿ]{3,}`)

// SpiderTool builds password wordlists by crawling a site, the native
// counterpart to cewl. Words come from text nodes, HTML comments, and
// meta tags; comments in particular leak internal naming.
type SpiderTool struct {
	client   *http.Client
	logger   *logger.Logger
	limiter  core.RateLimiter
	maxPages int
}

func NewSpiderTool(maxPages int, limiter core.RateLimiter, log *logger.Logger) *SpiderTool {
	if maxPages <= 0 {
		maxPages = 10
	}
	return &SpiderTool{
		client:   httpclient.New(httpclient.SpiderConfig()),
		logger:   log.WithTool("wordlist-spider"),
		limiter:  limiter,
		maxPages: maxPages,
	}
}

func (s *SpiderTool) Name() string                 { return "wordlist-spider" }
func (s *SpiderTool) Category() types.ToolCategory { return types.CategoryWeb }
func (s *SpiderTool) IsAvailable() bool            { return true }

func (s *SpiderTool) Version(ctx context.Context) string { return "native" }

func (s *SpiderTool) Run(ctx context.Context, operation string, target string, options map[string]string) (*types.ToolResult, error) {
	start := time.Now()
	if operation == "" {
		operation = "generate"
	}
	if operation != "generate" {
		return nil, fmt.Errorf("%w: wordlist-spider has no operation %q", core.ErrUnknownOperation, operation)
	}
	if target == "" {
		return nil, fmt.Errorf("operation wordlist-spider.generate requires a target")
	}
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		target = "http://" + target
	}

	minLen := 5
	if v := options["min_length"]; v != "" {
		fmt.Sscanf(v, "%d", &minLen)
	}

	result := &types.ToolResult{
		Tool:      "wordlist-spider",
		Operation: operation,
		Target:    target,
		Command:   fmt.Sprintf("wordlist-spider generate %s", target),
		StartedAt: start,
	}

	words, pages, err := s.crawl(ctx, target, minLen)
	result.Duration = time.Since(start)
	if err != nil {
		result.Success = false
		result.Error = err.Error()
		return result, nil
	}

	result.Success = true
	result.EntriesFound = len(words)
	result.Metadata = map[string]interface{}{"pages_crawled": pages}
	result.Output = strings.Join(words, "\n")
	if len(result.Output) > tools.WideMaxOutput {
		result.Output = result.Output[:tools.WideMaxOutput]
		result.Truncated = true
	}
	return result, nil
}

// crawl walks same host pages breadth first up to maxPages, counting
// word frequency. Returns words most frequent first.
func (s *SpiderTool) crawl(ctx context.Context, startURL string, minLen int) ([]string, int, error) {
	base, err := url.Parse(startURL)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid url: %w", err)
	}

	counts := make(map[string]int)
	visited := make(map[string]bool)
	queue := []string{startURL}
	pages := 0

	for len(queue) > 0 && pages < s.maxPages {
		select {
		case <-ctx.Done():
			return nil, pages, ctx.Err()
		default:
		}

		pageURL := queue[0]
		queue = queue[1:]
		if visited[pageURL] {
			continue
		}
		visited[pageURL] = true

		if s.limiter != nil {
			if err := s.limiter.Wait(ctx, base.Host); err != nil {
				return nil, pages, err
			}
		}

		body, err := s.fetch(ctx, pageURL)
		if err != nil {
			s.logger.Debugw("Spider fetch failed", "url", pageURL, "error", err)
			continue
		}
		pages++

		s.collectWords(body, minLen, counts)

		for _, link := range s.extractLinks(base, pageURL, body) {
			if !visited[link] {
				queue = append(queue, link)
			}
		}
	}

	if pages == 0 {
		return nil, 0, fmt.Errorf("could not fetch any page from %s", startURL)
	}

	words := make([]string, 0, len(counts))
	for w := range counts {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return words[i] < words[j]
	})
	return words, pages, nil
}

func (s *SpiderTool) fetch(ctx context.Context, pageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	return io.ReadAll(io.LimitReader(resp.Body, 2*1024*1024))
}

// collectWords walks the parse tree directly: text nodes, comment
// nodes, and meta content attributes all contribute words.
func (s *SpiderTool) collectWords(body []byte, minLen int, counts map[string]int) {
	doc, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		return
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" {
				return
			}
			if n.Data == "meta" {
				for _, attr := range n.Attr {
					if attr.Key == "content" {
						s.countWords(attr.Val, minLen, counts)
					}
				}
			}
		case html.TextNode, html.CommentNode:
			s.countWords(n.Data, minLen, counts)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
}

func (s *SpiderTool) countWords(text string, minLen int, counts map[string]int) {
	for _, w := range wordPattern.FindAllString(text, -1) {
		if len(w) >= minLen {
			counts[strings.ToLower(w)]++
		}
	}
}

func (s *SpiderTool) extractLinks(base *url.URL, pageURL string, body []byte) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil
	}

	pageBase, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}

	var links []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := pageBase.ResolveReference(ref)
		if abs.Host == base.Host && (abs.Scheme == "http" || abs.Scheme == "https") {
			abs.Fragment = ""
			links = append(links, abs.String())
		}
	})
	return links
}

func (s *SpiderTool) HandleQuery(ctx context.Context, query string) (*types.QueryResult, error) {
	q := strings.ToLower(query)

	if tools.ContainsAny(q, []string{"help", "aide"}) {
		return &types.QueryResult{
			Tool:    "wordlist-spider",
			Action:  "help",
			Success: true,
			Output:  "wordlist-spider - build a wordlist by crawling a site\nOperations: generate",
		}, nil
	}

	target := tools.ExtractURL(q)
	if target == "" {
		return &types.QueryResult{
			Tool:    "wordlist-spider",
			Action:  "wordlist",
			Success: false,
			Error:   "no target found in query",
			Example: "build a wordlist from example.com",
		}, nil
	}

	result, err := s.Run(ctx, "generate", target, nil)
	if err != nil {
		return nil, err
	}

	return &types.QueryResult{
		Tool:    "wordlist-spider",
		Action:  "wordlist",
		Success: result.Success,
		Target:  target,
		Output:  tools.Truncate(result.Output, tools.QueryMaxOutput),
		Error:   result.Error,
		Fields:  map[string]interface{}{"words_found": result.EntriesFound},
	}, nil
}

func (s *SpiderTool) Status() *types.ToolStatus {
	return &types.ToolStatus{
		Name:             "wordlist-spider",
		Available:        true,
		Description:      "Build custom wordlists by crawling a site without cewl",
		Category:         types.CategoryWeb,
		SupportedQueries: []string{"wordlist"},
		Modes:            []string{"generate"},
		UsageExamples:    []string{"build a wordlist from example.com"},
	}
}
