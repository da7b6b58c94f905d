package main

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// fixturePattern selects reply files anywhere under the fixture directory.
const fixturePattern = "**/*.{txt,md,json}"

// DefaultFixture answers models that have no fixture of their own.
const DefaultFixture = "default"

// numberedRe matches "name.N.ext" sequence files.
var numberedRe = regexp.MustCompile(`^(.+)\.(\d+)\.(txt|md|json)$`)

// fixtureKey maps a model name to the file name stem that serves it.
// Characters that are awkward in file names become underscores, so
// "gpt-oss:120b" is served by "gpt-oss_120b.txt".
func fixtureKey(model string) string {
	return strings.NewReplacer(":", "_", "/", "_").Replace(model)
}

// loadFixtures reads reply files from dir and returns the reply sequence per
// fixture key. Numbered files come first in numeric order and the base file
// is appended as the repeating fallback. JSON files must be valid JSON.
func loadFixtures(dir string) (map[string][]string, error) {
	fsys := os.DirFS(dir)
	matches, err := doublestar.Glob(fsys, fixturePattern)
	if err != nil {
		return nil, fmt.Errorf("glob fixtures: %w", err)
	}

	base := make(map[string]string)
	numbered := make(map[string]map[int]string)

	for _, m := range matches {
		data, err := fs.ReadFile(fsys, m)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", m, err)
		}
		name := path.Base(m)
		if strings.HasSuffix(name, ".json") && !json.Valid(data) {
			return nil, fmt.Errorf("invalid JSON in %s", m)
		}
		content := strings.TrimRight(string(data), "\n")

		if sub := numberedRe.FindStringSubmatch(name); sub != nil {
			idx, _ := strconv.Atoi(sub[2])
			if numbered[sub[1]] == nil {
				numbered[sub[1]] = make(map[int]string)
			}
			numbered[sub[1]][idx] = content
			continue
		}
		base[strings.TrimSuffix(name, path.Ext(name))] = content
	}

	fixtures := make(map[string][]string)
	for key, byIndex := range numbered {
		indices := make([]int, 0, len(byIndex))
		for i := range byIndex {
			indices = append(indices, i)
		}
		sort.Ints(indices)
		for _, i := range indices {
			fixtures[key] = append(fixtures[key], byIndex[i])
		}
	}
	for key, content := range base {
		fixtures[key] = append(fixtures[key], content)
	}

	if len(fixtures) == 0 {
		return nil, fmt.Errorf("no fixture files found in %s", dir)
	}
	return fixtures, nil
}
