package config

import (
	"bufio"
	"bytes"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// ReadLikelihoods reads a likelihood file: either lines of
// "MutatorName value" or a YAML map. '#' starts a comment.
func ReadLikelihoods(path string) (map[string]int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read likelihoods file")
	}
	l, err := ParseLikelihoods(data)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", path)
	}
	return l, nil
}

// ParseLikelihoods parses the contents of a likelihood file. Values are
// clamped to 0..100.
func ParseLikelihoods(data []byte) (map[string]int, error) {
	out := make(map[string]int)
	if l, ok := parseLines(data); ok {
		return l, nil
	}
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(err, "neither 'Name value' lines nor YAML")
	}
	if err := mergeLikelihoods(out, m); err != nil {
		return nil, err
	}
	return out, nil
}

func parseLines(data []byte) (map[string]int, bool) {
	out := make(map[string]int)
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line, _, _ := strings.Cut(sc.Text(), "#")
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 2 || strings.HasSuffix(fields[0], ":") {
			return nil, false
		}
		v, err := cast.ToIntE(fields[1])
		if err != nil {
			return nil, false
		}
		out[strings.ToLower(fields[0])] = clampLikelihood(v)
	}
	return out, sc.Err() == nil
}

// mergeLikelihoods adds a map of name to number, as decoded from YAML or
// viper, to dst.
func mergeLikelihoods(dst map[string]int, raw any) error {
	m, err := cast.ToStringMapE(raw)
	if err != nil {
		return err
	}
	for k, v := range m {
		n, err := cast.ToIntE(v)
		if err != nil {
			return errors.Wrapf(err, "likelihood of %s", k)
		}
		dst[strings.ToLower(k)] = clampLikelihood(n)
	}
	return nil
}

func clampLikelihood(v int) int { return min(max(v, 0), 100) }
