package artifact

import (
	"archive/tar"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// RetentionConfig controls how long run directories and their archives
// are kept.
type RetentionConfig struct {
	// RetentionDays is how long a finished run stays on disk in any
	// form before deletion.
	RetentionDays int

	// ArchiveAfterDays is the age at which a finished run is
	// compressed into the archive tree.
	ArchiveAfterDays int

	// ArchiveRetentionDays is how long archives are kept.
	ArchiveRetentionDays int

	// KeepFailed exempts failed runs from archival and deletion, so
	// their artifacts stay inspectable.
	KeepFailed bool

	// KeepMinRuns is a floor on the number of runs kept regardless of
	// age.
	KeepMinRuns int
}

// DefaultRetentionConfig keeps a month of runs, archives after a week,
// and holds archives for a quarter.
func DefaultRetentionConfig() RetentionConfig {
	return RetentionConfig{
		RetentionDays:        30,
		ArchiveAfterDays:     7,
		ArchiveRetentionDays: 90,
		KeepFailed:           true,
		KeepMinRuns:          100,
	}
}

// LifecycleManager applies retention policy to the run directories a
// Manager writes.
type LifecycleManager struct {
	baseDir string
	config  RetentionConfig
}

// NewLifecycleManager creates a lifecycle manager over the same base
// directory as the artifact Manager.
func NewLifecycleManager(baseDir string, config RetentionConfig) *LifecycleManager {
	return &LifecycleManager{baseDir: baseDir, config: config}
}

// CleanupResult reports what a cleanup pass did (or, in dry-run mode,
// would do).
type CleanupResult struct {
	Archived   []string `json:"archived"`
	Deleted    []string `json:"deleted"`
	Kept       []string `json:"kept"`
	Errors     []string `json:"errors,omitempty"`
	SpaceSaved int64    `json:"spaceSaved"`
}

type runAction int

const (
	actionKeep runAction = iota
	actionArchive
	actionDelete
)

type runInfo struct {
	id      string
	status  string
	endedAt time.Time
	size    int64
}

// Cleanup walks the runs directory and archives or deletes runs per
// the retention config. With dryRun set, nothing is touched and the
// result describes what a real pass would do.
func (m *LifecycleManager) Cleanup(dryRun bool) (*CleanupResult, error) {
	result := &CleanupResult{
		Archived: []string{},
		Deleted:  []string{},
		Kept:     []string{},
		Errors:   []string{},
	}

	runs, errs := m.scanRuns()
	result.Errors = append(result.Errors, errs...)

	// Oldest first, so the KeepMinRuns floor protects the newest runs.
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].endedAt.Before(runs[j].endedAt)
	})

	now := time.Now()
	removed := 0
	for _, run := range runs {
		action := m.decide(run, now)

		// The floor counts runs remaining on disk in any form.
		if action != actionKeep && len(runs)-removed-1 < m.config.KeepMinRuns {
			action = actionKeep
		}

		switch action {
		case actionDelete:
			if !dryRun {
				if err := os.RemoveAll(filepath.Join(m.baseDir, "runs", run.id)); err != nil {
					result.Errors = append(result.Errors, fmt.Sprintf("delete %s: %v", run.id, err))
					continue
				}
			}
			result.Deleted = append(result.Deleted, run.id)
			result.SpaceSaved += run.size
			removed++

		case actionArchive:
			if !dryRun {
				if err := m.archiveRun(run.id); err != nil {
					result.Errors = append(result.Errors, fmt.Sprintf("archive %s: %v", run.id, err))
					continue
				}
			}
			result.Archived = append(result.Archived, run.id)
			// Compression roughly halves the footprint.
			result.SpaceSaved += run.size / 2
			removed++

		default:
			result.Kept = append(result.Kept, run.id)
		}
	}

	return result, nil
}

func (m *LifecycleManager) decide(run runInfo, now time.Time) runAction {
	// Unfinished runs are never touched.
	if run.status == "pending" || run.status == "in-progress" {
		return actionKeep
	}
	if m.config.KeepFailed && run.status == "failed" {
		return actionKeep
	}

	age := now.Sub(run.endedAt)
	switch {
	case age > time.Duration(m.config.RetentionDays)*24*time.Hour:
		return actionDelete
	case age > time.Duration(m.config.ArchiveAfterDays)*24*time.Hour:
		return actionArchive
	default:
		return actionKeep
	}
}

func (m *LifecycleManager) scanRuns() ([]runInfo, []string) {
	runsDir := filepath.Join(m.baseDir, "runs")
	entries, err := os.ReadDir(runsDir)
	if err != nil {
		return nil, nil
	}

	var runs []runInfo
	var errs []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		id := entry.Name()
		runDir := filepath.Join(runsDir, id)

		meta, err := loadRunMetadataFromDir(runDir)
		if err != nil {
			errs = append(errs, fmt.Sprintf("load %s: %v", id, err))
			continue
		}

		runs = append(runs, runInfo{
			id:      id,
			status:  meta.Status,
			endedAt: meta.EndedAt,
			size:    dirSize(runDir),
		})
	}
	return runs, errs
}

// archiveRun compresses a run directory into archive/<month>/<id>.tar.gz
// and removes the original.
func (m *LifecycleManager) archiveRun(workflowID string) error {
	runDir := filepath.Join(m.baseDir, "runs", workflowID)

	archiveDir := filepath.Join(m.baseDir, "archive", extractMonthFromRunID(workflowID))
	if err := os.MkdirAll(archiveDir, 0755); err != nil {
		return err
	}
	archivePath := filepath.Join(archiveDir, workflowID+".tar.gz")

	if err := writeTarball(archivePath, runDir, workflowID); err != nil {
		os.Remove(archivePath)
		return err
	}
	return os.RemoveAll(runDir)
}

func writeTarball(archivePath, srcDir, prefix string) error {
	f, err := os.Create(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)

	err = filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}

		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		header.Name = filepath.Join(prefix, rel)

		if err := tw.WriteHeader(header); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()
		_, err = io.Copy(tw, file)
		return err
	})
	if err != nil {
		return err
	}

	if err := tw.Close(); err != nil {
		return err
	}
	if err := gz.Close(); err != nil {
		return err
	}
	return f.Close()
}

// RestoreArchive extracts an archived run back into the runs directory.
func (m *LifecycleManager) RestoreArchive(workflowID string) error {
	archivePath := m.findArchive(workflowID)
	if archivePath == "" {
		return fmt.Errorf("archive not found: %s", workflowID)
	}

	runDir := filepath.Join(m.baseDir, "runs", workflowID)
	if _, err := os.Stat(runDir); err == nil {
		return fmt.Errorf("run already exists: %s", workflowID)
	}

	return extractTarball(archivePath, filepath.Dir(runDir))
}

func extractTarball(archivePath, destDir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return err
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		target := filepath.Join(destDir, header.Name)
		// Reject entries that would escape the destination.
		if !strings.HasPrefix(filepath.Clean(target), filepath.Clean(destDir)) {
			return fmt.Errorf("invalid path in archive: %s", header.Name)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return err
			}
			out, err := os.Create(target)
			if err != nil {
				return err
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return err
			}
			if err := out.Close(); err != nil {
				return err
			}
			if err := os.Chmod(target, os.FileMode(header.Mode)); err != nil {
				return err
			}
		}
	}
}

// ListArchives returns the workflow IDs of every archived run.
func (m *LifecycleManager) ListArchives() ([]string, error) {
	var archives []string
	filepath.WalkDir(filepath.Join(m.baseDir, "archive"), func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if name, ok := strings.CutSuffix(d.Name(), ".tar.gz"); ok {
			archives = append(archives, name)
		}
		return nil
	})
	return archives, nil
}

// DeleteArchive removes an archived run.
func (m *LifecycleManager) DeleteArchive(workflowID string) error {
	archivePath := m.findArchive(workflowID)
	if archivePath == "" {
		return fmt.Errorf("archive not found: %s", workflowID)
	}
	return os.Remove(archivePath)
}

func (m *LifecycleManager) findArchive(workflowID string) string {
	// Fast path: the month directory derived from the workflow ID.
	path := filepath.Join(m.baseDir, "archive", extractMonthFromRunID(workflowID), workflowID+".tar.gz")
	if _, err := os.Stat(path); err == nil {
		return path
	}

	var found string
	filepath.WalkDir(filepath.Join(m.baseDir, "archive"), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.Name() == workflowID+".tar.gz" {
			found = path
			return filepath.SkipAll
		}
		return nil
	})
	return found
}

// CleanupArchives deletes archives older than the archive retention
// window.
func (m *LifecycleManager) CleanupArchives(dryRun bool) (*CleanupResult, error) {
	result := &CleanupResult{
		Deleted: []string{},
		Kept:    []string{},
		Errors:  []string{},
	}
	threshold := time.Now().Add(-time.Duration(m.config.ArchiveRetentionDays) * 24 * time.Hour)

	filepath.WalkDir(filepath.Join(m.baseDir, "archive"), func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		workflowID, ok := strings.CutSuffix(d.Name(), ".tar.gz")
		if !ok {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}

		if info.ModTime().Before(threshold) {
			if !dryRun {
				if err := os.Remove(path); err != nil {
					result.Errors = append(result.Errors, fmt.Sprintf("delete archive %s: %v", workflowID, err))
					return nil
				}
			}
			result.Deleted = append(result.Deleted, workflowID)
			result.SpaceSaved += info.Size()
		} else {
			result.Kept = append(result.Kept, workflowID)
		}
		return nil
	})

	return result, nil
}

// DiskUsageStats summarizes the artifact tree's footprint.
type DiskUsageStats struct {
	RunCount     int   `json:"runCount"`
	ArchiveCount int   `json:"archiveCount"`
	ActiveSize   int64 `json:"activeSize"`
	ArchiveSize  int64 `json:"archiveSize"`
	TotalSize    int64 `json:"totalSize"`
}

// DiskUsage measures active runs and archives.
func (m *LifecycleManager) DiskUsage() (*DiskUsageStats, error) {
	stats := &DiskUsageStats{}

	runsDir := filepath.Join(m.baseDir, "runs")
	if entries, err := os.ReadDir(runsDir); err == nil {
		stats.RunCount = len(entries)
		for _, entry := range entries {
			if entry.IsDir() {
				stats.ActiveSize += dirSize(filepath.Join(runsDir, entry.Name()))
			}
		}
	}

	filepath.WalkDir(filepath.Join(m.baseDir, "archive"), func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(d.Name(), ".tar.gz") {
			return nil
		}
		if info, err := d.Info(); err == nil {
			stats.ArchiveSize += info.Size()
			stats.ArchiveCount++
		}
		return nil
	})

	stats.TotalSize = stats.ActiveSize + stats.ArchiveSize
	return stats, nil
}

// workflowMeta is the slice of run metadata retention decisions need.
type workflowMeta struct {
	Status  string    `json:"status"`
	EndedAt time.Time `json:"endedAt"`
}

func loadRunMetadataFromDir(runDir string) (*workflowMeta, error) {
	data, err := os.ReadFile(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return nil, err
	}
	var meta workflowMeta
	return &meta, json.Unmarshal(data, &meta)
}

func extractMonthFromRunID(workflowID string) string {
	// Workflow IDs are date-prefixed: "2026-08-28-proj-7-a1b2c3d4".
	if len(workflowID) >= 7 {
		return workflowID[:7]
	}
	return time.Now().Format("2006-01")
}

func dirSize(path string) int64 {
	var size int64
	filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			size += info.Size()
		}
		return nil
	})
	return size
}
