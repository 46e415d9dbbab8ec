// Package recording finds the recordings of a bags directory and lays out their
// processed output.
package recording

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/lherman-cs/go-rosbag2/internal/manifest"
)

const (
	CSVDirName     = "csv_files"
	ImageDirName   = "image_files"
	SummaryFile    = "summary.yaml"
	MetricsFile    = "metrics.prom"
	dirPermissions = 0o755
)

var ErrStoreMissing = errors.New("storage file listed in the manifest does not exist")

// Recording is one directory of the bags directory holding a metadata.yaml.
type Recording struct {
	Name string
	Dir  string
}

func (r Recording) ManifestPath() string {
	return filepath.Join(r.Dir, manifest.FileName)
}

// Load reads the manifest of r and locates its storage file.
func (r Recording) Load() (*manifest.Manifest, string, error) {
	m, err := manifest.Load(r.ManifestPath())
	if err != nil {
		return nil, "", err
	}

	rel, err := m.StoreFile()
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", r.Name, err)
	}

	storePath := filepath.Join(r.Dir, filepath.FromSlash(rel))
	info, err := os.Stat(storePath)
	if err != nil || info.IsDir() {
		return nil, "", fmt.Errorf("%s: %w: %s", r.Name, ErrStoreMissing, rel)
	}

	return m, storePath, nil
}

// Discover returns the recordings found directly under bagsDir, sorted by name.
// Directories without a manifest are skipped.
func Discover(bagsDir string) ([]Recording, error) {
	entries, err := os.ReadDir(bagsDir)
	if err != nil {
		return nil, fmt.Errorf("listing recordings: %w", err)
	}

	var recordings []Recording
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		r := Recording{
			Name: entry.Name(),
			Dir:  filepath.Join(bagsDir, entry.Name()),
		}
		if _, err := os.Stat(r.ManifestPath()); err != nil {
			continue
		}

		recordings = append(recordings, r)
	}

	sort.Slice(recordings, func(i, j int) bool {
		return recordings[i].Name < recordings[j].Name
	})
	return recordings, nil
}

// Output is where the artifacts of one recording go.
type Output struct {
	Dir      string
	CSVDir   string
	ImageDir string
}

func (o Output) SummaryPath() string {
	return filepath.Join(o.Dir, SummaryFile)
}

func (o Output) MetricsPath() string {
	return filepath.Join(o.Dir, MetricsFile)
}

// PrepareOutput replaces whatever processedDir holds under name, a previous run's
// directory or a stray file, with an empty output layout.
func PrepareOutput(processedDir, name string) (Output, error) {
	out := Output{Dir: filepath.Join(processedDir, name)}
	out.CSVDir = filepath.Join(out.Dir, CSVDirName)
	out.ImageDir = filepath.Join(out.Dir, ImageDirName)

	if err := os.RemoveAll(out.Dir); err != nil {
		return out, fmt.Errorf("removing previous output: %w", err)
	}

	for _, dir := range []string{out.CSVDir, out.ImageDir} {
		if err := os.MkdirAll(dir, dirPermissions); err != nil {
			return out, fmt.Errorf("creating output: %w", err)
		}
	}

	return out, nil
}
