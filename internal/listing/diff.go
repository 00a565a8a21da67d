package listing

import (
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/pkg/errors"
	"github.com/sergi/go-diff/diffmatchpatch"
	"golang.org/x/term"
)

// DiffConfig selects how two listings are compared.
type DiffConfig struct {
	// Tool is "delta", "git" or "go". Empty picks the first one found.
	Tool  string
	Color bool
}

var hunkHeader = regexp.MustCompile("(?m)^@@ .*$")

// Diff returns the differences between two listings, or "" when there
// are none.
func Diff(src, dst string, conf *DiffConfig) (string, error) {
	if src == dst {
		return "", nil
	}
	switch conf.Tool {
	case "delta":
		return deltaDiff(src, dst)
	case "git":
		return gitDiff(src, dst, conf)
	case "go":
		return goDiff(src, dst), nil
	case "":
		if _, err := exec.LookPath("delta"); err == nil && conf.Color {
			return deltaDiff(src, dst)
		} else if _, err := exec.LookPath("git"); err == nil {
			return gitDiff(src, dst, conf)
		}
		return goDiff(src, dst), nil
	}
	return "", errors.Errorf("unknown diff tool %q", conf.Tool)
}

// goDiff diffs line by line so that whole instructions show up as
// inserted or deleted.
func goDiff(src, dst string) string {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(src, dst)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var sb strings.Builder
	for _, d := range diffs {
		prefix := "  "
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
		case diffmatchpatch.DiffDelete:
			prefix = "- "
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line != "" {
				sb.WriteString(prefix + line)
			}
		}
	}
	return sb.String()
}

func writeTemp(pattern, data string) (string, error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := f.WriteString(data); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

func tempPair(src, dst string) (string, string, func(), error) {
	a, err := writeTemp("src", src)
	if err != nil {
		return "", "", nil, err
	}
	b, err := writeTemp("dst", dst)
	if err != nil {
		os.Remove(a)
		return "", "", nil, err
	}
	return a, b, func() { os.Remove(a); os.Remove(b) }, nil
}

func gitDiff(src, dst string, conf *DiffConfig) (string, error) {
	a, b, cleanup, err := tempPair(src, dst)
	if err != nil {
		return "", err
	}
	defer cleanup()

	// git diff exits 1 when the files differ
	dat, _ := exec.Command("git", "diff", "--no-index", a, b).CombinedOutput()

	out := string(dat)
	// drop the file header lines
	for range 4 {
		_, out, _ = strings.Cut(out, "\n")
	}
	out = hunkHeader.ReplaceAllString(out, "")
	if conf.Color {
		var sb strings.Builder
		if err := quick.Highlight(&sb, out, "diff", "terminal256", "nord"); err != nil {
			return "", err
		}
		return sb.String(), nil
	}
	return out, nil
}

func deltaDiff(src, dst string) (string, error) {
	a, b, cleanup, err := tempPair(src, dst)
	if err != nil {
		return "", err
	}
	defer cleanup()

	width := 120
	if term.IsTerminal(int(os.Stdout.Fd())) {
		if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
			width = w
		}
	}
	out, _ := exec.Command(
		"delta",
		"--dark",
		"--side-by-side",
		"--file-style", "omit",
		"--hunk-header-style", "omit",
		"--syntax-theme", "Nord",
		"--width", strconv.Itoa(width),
		a, b,
	).CombinedOutput()
	return string(out), nil
}
