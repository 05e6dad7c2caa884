// Package detector probes the host for installed security tooling.
// Detection is a PATH lookup per candidate binary, grouped into the
// categories the rest of the system reasons about.
package detector

import (
	"encoding/json"
	"os"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/CodeMonkeyCybersecurity/sharingan/internal/logger"
)

// DetectedTool is one probed binary.
type DetectedTool struct {
	Name         string   `json:"name"`
	Path         string   `json:"path"`
	Category     string   `json:"category"`
	Description  string   `json:"description"`
	Capabilities []string `json:"capabilities"`
	Installed    bool     `json:"installed"`
}

// Detector scans PATH for the tool catalog and keeps the last result.
type Detector struct {
	log *logger.Logger

	// lookPath is swappable so tests can fake an installed set.
	lookPath      func(file string) (string, error)
	osReleasePath string

	mu              sync.Mutex
	detected        map[string]DetectedTool
	categoriesFound []string
	scanTime        time.Time
}

func New(log *logger.Logger) *Detector {
	return &Detector{
		log:           log.WithComponent("detector"),
		lookPath:      exec.LookPath,
		osReleasePath: "/etc/os-release",
		detected:      make(map[string]DetectedTool),
	}
}

// Detect probes a single binary.
func (d *Detector) Detect(name string) DetectedTool {
	category := categoryFor(name)
	tool := DetectedTool{
		Name:         name,
		Category:     category,
		Description:  describe(name),
		Capabilities: capabilitiesFor(name, category),
	}
	if path, err := d.lookPath(name); err == nil {
		tool.Path = path
		tool.Installed = true
	}
	return tool
}

// ScanAll probes every cataloged binary and replaces the stored result.
func (d *Detector) ScanAll() map[string]DetectedTool {
	detected := make(map[string]DetectedTool)
	var found []string

	for _, category := range categoryOrder {
		categoryInstalled := false
		for _, name := range toolCategories[category] {
			if _, seen := detected[name]; seen {
				continue
			}
			tool := d.Detect(name)
			detected[name] = tool
			if tool.Installed && tool.Category == category {
				categoryInstalled = true
			}
		}
		if categoryInstalled {
			found = append(found, category)
		}
	}

	d.mu.Lock()
	d.detected = detected
	d.categoriesFound = found
	d.scanTime = time.Now()
	d.mu.Unlock()

	installed := 0
	for _, t := range detected {
		if t.Installed {
			installed++
		}
	}
	d.log.Infow("Tool scan finished",
		"installed", installed,
		"scanned", len(detected),
		"categories", strings.Join(found, ","),
	)
	return detected
}

// Installed returns only the tools found on PATH.
func (d *Detector) Installed() map[string]DetectedTool {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make(map[string]DetectedTool)
	for name, tool := range d.detected {
		if tool.Installed {
			out[name] = tool
		}
	}
	return out
}

// ByCategory returns the installed tools of one category.
func (d *Detector) ByCategory(category string) map[string]DetectedTool {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make(map[string]DetectedTool)
	for name, tool := range d.detected {
		if tool.Installed && tool.Category == category {
			out[name] = tool
		}
	}
	return out
}

// Summary aggregates the last scan.
type Summary struct {
	ScanTime        time.Time           `json:"scan_time"`
	TotalScanned    int                 `json:"total_scanned"`
	TotalInstalled  int                 `json:"total_installed"`
	CategoriesFound []string            `json:"categories_found"`
	ToolsByCategory map[string][]string `json:"tools_by_category"`
	NotInstalled    []string            `json:"not_installed"`
}

func (d *Detector) Summary() Summary {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := Summary{
		ScanTime:        d.scanTime,
		TotalScanned:    len(d.detected),
		CategoriesFound: append([]string(nil), d.categoriesFound...),
		ToolsByCategory: make(map[string][]string),
	}
	for name, tool := range d.detected {
		if tool.Installed {
			s.TotalInstalled++
			s.ToolsByCategory[tool.Category] = append(s.ToolsByCategory[tool.Category], name)
		} else {
			s.NotInstalled = append(s.NotInstalled, name)
		}
	}
	for _, names := range s.ToolsByCategory {
		sort.Strings(names)
	}
	sort.Strings(s.NotInstalled)
	return s
}

// JSON exports the last scan for the API and the CLI.
func (d *Detector) JSON() ([]byte, error) {
	d.mu.Lock()
	export := struct {
		ScanTime time.Time               `json:"scan_time"`
		Tools    map[string]DetectedTool `json:"tools"`
	}{d.scanTime, d.detected}
	d.mu.Unlock()

	return json.MarshalIndent(export, "", "  ")
}

// IsKali reports whether the host looks like Kali Linux, first from
// /etc/os-release and then from the canonical tool install paths.
func (d *Detector) IsKali() bool {
	if raw, err := os.ReadFile(d.osReleasePath); err == nil {
		content := string(raw)
		if strings.Contains(content, "ID=kali") || strings.Contains(content, `PRETTY_NAME="Kali GNU/Linux"`) {
			return true
		}
	}
	for _, path := range []string{"/usr/bin/nmap", "/usr/share/metasploit-framework"} {
		if _, err := os.Stat(path); err == nil {
			return true
		}
	}
	return false
}
