// Package ingest imports chapter manuscripts into the workspace store.
//
// Chapters are Markdown files named "NN-title.md" (or carrying a
// "number:" front-matter key). "## Scene" headings split a chapter into
// scenes; everything before the first scene heading is chapter prose.
// Provenance is the file path; re-importing a file updates the chapter with
// the same number in place.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/Shabir12345/Hall-of-Jade-Manuscripts-sub009/internal/story"
)

// ChapterStore is the slice of the store the importer needs.
type ChapterStore interface {
	UpsertChapter(ctx context.Context, ch *story.Chapter) error
}

// Options configures an import run.
type Options struct {
	Recursive  bool
	DryRun     bool
	ProgressFn func(current, total int, file string)
}

// Result tallies one import run.
type Result struct {
	ChaptersImported int
	ScenesImported   int
	Skipped          int
	Errors           []string
}

// Add merges another result into this one.
func (r *Result) Add(other *Result) {
	r.ChaptersImported += other.ChaptersImported
	r.ScenesImported += other.ScenesImported
	r.Skipped += other.Skipped
	r.Errors = append(r.Errors, other.Errors...)
}

// Engine imports manuscripts into a store.
type Engine struct {
	store ChapterStore
}

// NewEngine creates an import engine.
func NewEngine(st ChapterStore) *Engine {
	return &Engine{store: st}
}

// ImportPath imports a file, or every .md file in a directory.
func (e *Engine) ImportPath(ctx context.Context, path string, opts Options) (*Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return e.importFiles(ctx, []string{path}, opts)
	}

	var files []string
	if opts.Recursive {
		err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.HasSuffix(strings.ToLower(p), ".md") {
				files = append(files, p)
			}
			return nil
		})
	} else {
		var entries []os.DirEntry
		entries, err = os.ReadDir(path)
		for _, en := range entries {
			if !en.IsDir() && strings.HasSuffix(strings.ToLower(en.Name()), ".md") {
				files = append(files, filepath.Join(path, en.Name()))
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", path, err)
	}
	sort.Strings(files)
	return e.importFiles(ctx, files, opts)
}

func (e *Engine) importFiles(ctx context.Context, files []string, opts Options) (*Result, error) {
	res := &Result{}
	for i, f := range files {
		if opts.ProgressFn != nil {
			opts.ProgressFn(i+1, len(files), f)
		}
		ch, err := ParseChapterFile(f)
		if err != nil {
			res.Skipped++
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", f, err))
			continue
		}
		if opts.DryRun {
			res.ChaptersImported++
			res.ScenesImported += len(ch.Scenes)
			continue
		}
		if err := e.store.UpsertChapter(ctx, ch); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", f, err))
			continue
		}
		res.ChaptersImported++
		res.ScenesImported += len(ch.Scenes)
	}
	return res, nil
}

var (
	fileNumberRe  = regexp.MustCompile(`^(\d+)`)
	frontNumberRe = regexp.MustCompile(`(?m)^number:\s*(\d+)\s*$`)
	sceneHeadRe   = regexp.MustCompile(`(?m)^##\s+(.*)$`)
	titleHeadRe   = regexp.MustCompile(`(?m)^#\s+(.*)$`)
)

// ParseChapterFile reads one Markdown manuscript into a Chapter.
func ParseChapterFile(path string) (*story.Chapter, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading: %w", err)
	}
	content := string(b)

	number := 0
	if m := frontNumberRe.FindStringSubmatch(content); m != nil {
		number, _ = strconv.Atoi(m[1])
	} else if m := fileNumberRe.FindStringSubmatch(filepath.Base(path)); m != nil {
		number, _ = strconv.Atoi(m[1])
	}
	if number <= 0 {
		return nil, fmt.Errorf("no chapter number in filename or front matter")
	}

	ch := &story.Chapter{Number: number}
	if m := titleHeadRe.FindStringSubmatch(content); m != nil {
		ch.Title = strings.TrimSpace(m[1])
	}

	// Split on scene headings; the preamble is chapter prose.
	heads := sceneHeadRe.FindAllStringSubmatchIndex(content, -1)
	if len(heads) == 0 {
		ch.Content = strings.TrimSpace(stripHeading(content))
		if ch.Content == "" {
			return nil, fmt.Errorf("chapter file is empty")
		}
		return ch, nil
	}

	ch.Content = strings.TrimSpace(stripHeading(content[:heads[0][0]]))
	for i, h := range heads {
		title := strings.TrimSpace(content[h[2]:h[3]])
		end := len(content)
		if i+1 < len(heads) {
			end = heads[i+1][0]
		}
		body := strings.TrimSpace(content[h[1]:end])
		ch.Scenes = append(ch.Scenes, story.Scene{
			Number:  i + 1,
			Title:   title,
			Content: body,
		})
		if ch.Content != "" {
			ch.Content += "\n\n"
		}
		ch.Content += body
	}
	if strings.TrimSpace(ch.Content) == "" {
		return nil, fmt.Errorf("chapter file is empty")
	}
	return ch, nil
}

// stripHeading removes the "# Title" line and any front matter block.
func stripHeading(content string) string {
	out := content
	if strings.HasPrefix(out, "---") {
		if end := strings.Index(out[3:], "---"); end >= 0 {
			out = out[3+end+3:]
		}
	}
	out = titleHeadRe.ReplaceAllString(out, "")
	return out
}

// FormatResult renders an import result for the CLI.
func FormatResult(r *Result) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Imported %d chapter(s), %d scene(s)\n", r.ChaptersImported, r.ScenesImported)
	if r.Skipped > 0 {
		fmt.Fprintf(&sb, "Skipped %d file(s)\n", r.Skipped)
	}
	for _, e := range r.Errors {
		fmt.Fprintf(&sb, "  error: %s\n", e)
	}
	return sb.String()
}
