// Package assets points the admin HTML page at the latest hashed build assets.
package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gobwas/glob"
)

// Build asset patterns.
const (
	ScriptPattern = "index-*.js"
	StylePattern  = "index-*.css"
)

// ErrNoMatch is returned when no file matches a pattern.
var ErrNoMatch = errors.New("no matching asset")

var (
	scriptAttr = regexp.MustCompile(`src="/assets/index-[^"]+\.js"`)
	styleAttr  = regexp.MustCompile(`href="/assets/index-[^"]+\.css"`)
)

// Newest returns the name of the regular file in dir matching pattern with the latest
// modification time. Ties go to the lexically greatest name.
func Newest(dir, pattern string) (string, error) {
	g, err := glob.Compile(pattern)
	if err != nil {
		return "", fmt.Errorf("compile pattern %q: %w", pattern, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", dir, err)
	}

	var (
		best     string
		bestTime int64
	)
	for _, e := range entries {
		if !e.Type().IsRegular() || !g.Match(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return "", fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		mtime := info.ModTime().UnixNano()
		if best == "" || mtime > bestTime || (mtime == bestTime && e.Name() > best) {
			best, bestTime = e.Name(), mtime
		}
	}

	if best == "" {
		return "", fmt.Errorf("%w: %s in %s", ErrNoMatch, pattern, dir)
	}
	return best, nil
}

// Change describes one attribute substitution.
type Change struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Changed reports whether the substitution altered the page.
func (c Change) Changed() bool { return c.From != "" && c.From != c.To }

// Changes lists what Rewrite substituted. A zero Change means the attribute was absent.
type Changes struct {
	Script Change `json:"script"`
	Style  Change `json:"style"`
}

// Rewrite replaces the first script and stylesheet asset references with jsFile and cssFile.
// All other bytes are left as is.
func Rewrite(html, jsFile, cssFile string) (string, Changes) {
	var changes Changes
	html, changes.Script = replaceFirst(html, scriptAttr, `src="/assets/`+jsFile+`"`)
	html, changes.Style = replaceFirst(html, styleAttr, `href="/assets/`+cssFile+`"`)
	return html, changes
}

func replaceFirst(s string, re *regexp.Regexp, repl string) (string, Change) {
	loc := re.FindStringIndex(s)
	if loc == nil {
		return s, Change{}
	}
	from := s[loc[0]:loc[1]]
	return s[:loc[0]] + repl + s[loc[1]:], Change{From: attrValue(from), To: attrValue(repl)}
}

func attrValue(attr string) string {
	_, v, _ := strings.Cut(attr, `="`)
	return strings.TrimSuffix(v, `"`)
}

// References lists the /assets/ script and stylesheet URLs referenced by the page.
func References(html string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var refs []string
	doc.Find(`script[src^="/assets/"]`).Each(func(_ int, s *goquery.Selection) {
		refs = append(refs, s.AttrOr("src", ""))
	})
	doc.Find(`link[href^="/assets/"]`).Each(func(_ int, s *goquery.Selection) {
		refs = append(refs, s.AttrOr("href", ""))
	})
	return refs, nil
}

// Options locates the build output and the admin page template.
type Options struct {
	DistDir      string // default "dist"
	TemplatePath string // default "public/admin.html"
	OutputPath   string // default "<DistDir>/admin.html"
}

func (o Options) withDefaults() Options {
	if o.DistDir == "" {
		o.DistDir = "dist"
	}
	if o.TemplatePath == "" {
		o.TemplatePath = filepath.Join("public", "admin.html")
	}
	if o.OutputPath == "" {
		o.OutputPath = filepath.Join(o.DistDir, "admin.html")
	}
	return o
}

// Result reports what UpdateAdminHTML wrote.
type Result struct {
	Script     string  `json:"script"`
	Style      string  `json:"style"`
	OutputPath string  `json:"outputPath"`
	Changes    Changes `json:"changes"`
}

// UpdateAdminHTML renders the template against the newest built assets.
func UpdateAdminHTML(opts Options) (*Result, error) {
	opts = opts.withDefaults()
	assetsDir := filepath.Join(opts.DistDir, "assets")

	js, err := Newest(assetsDir, ScriptPattern)
	if err != nil {
		return nil, err
	}
	css, err := Newest(assetsDir, StylePattern)
	if err != nil {
		return nil, err
	}

	tmpl, err := os.ReadFile(opts.TemplatePath)
	if err != nil {
		return nil, fmt.Errorf("read template: %w", err)
	}

	out, changes := Rewrite(string(tmpl), js, css)
	if err := os.WriteFile(opts.OutputPath, []byte(out), 0o644); err != nil {
		return nil, fmt.Errorf("write %s: %w", opts.OutputPath, err)
	}

	return &Result{Script: js, Style: css, OutputPath: opts.OutputPath, Changes: changes}, nil
}
