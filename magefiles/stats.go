//go:build mage

package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// goLines counts production and test lines for one package directory.
type goLines struct {
	Prod int `json:"prod"`
	Test int `json:"test"`
}

// Stats prints lines of Go per package as one JSON object.
func Stats() error {
	perDir := make(map[string]*goLines)

	err := filepath.WalkDir(".", func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			name := d.Name()
			if path != "." && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") || name == "vendor" || name == binaryDir || name == "magefiles") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") {
			return nil
		}
		count, countErr := countLines(path)
		if countErr != nil {
			return nil
		}
		dir := filepath.ToSlash(filepath.Dir(path))
		if perDir[dir] == nil {
			perDir[dir] = &goLines{}
		}
		if strings.HasSuffix(path, "_test.go") {
			perDir[dir].Test += count
		} else {
			perDir[dir].Prod += count
		}
		return nil
	})
	if err != nil {
		return err
	}

	dirs := make([]string, 0, len(perDir))
	for dir := range perDir {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)

	out := json.NewEncoder(os.Stdout)
	out.SetIndent("", "  ")
	total := goLines{}
	report := make(map[string]goLines, len(dirs)+1)
	for _, dir := range dirs {
		report[dir] = *perDir[dir]
		total.Prod += perDir[dir].Prod
		total.Test += perDir[dir].Test
	}
	report["total"] = total
	if err := out.Encode(report); err != nil {
		return fmt.Errorf("encoding stats: %w", err)
	}
	return nil
}

func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		count++
	}
	return count, scanner.Err()
}
