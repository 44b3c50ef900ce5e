// =============================================================================
// RL-24 Transmission - File Manager Utility
// =============================================================================
//
// This module provides the file handling around the pipeline:
//   - Directory management
//   - Atomic output writes (temp file + rename)
//   - Input archival after a successful run
//   - Findings logs
//   - Input discovery for batch validation
//
// ARCHIVAL STRATEGY:
//   - Input files are moved to the input archive after a successful run
//   - Failed inputs stay where they are
//   - A transmission file is never overwritten: its name carries the
//     sequence number, so an existing file means the sequence was reused
//
// =============================================================================

package utils

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ginjaninja78/rl24-transmission/internal/report"
)

// ErrOutputExists is returned when the transmission file is already present.
var ErrOutputExists = errors.New("output file already exists")

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles file operations for the pipeline.
type FileManager struct {
	// OutputDir is the directory where transmissions are written.
	OutputDir string

	// InputArchiveDir is the directory for archived input files.
	InputArchiveDir string

	// LogDir is the directory for findings logs.
	LogDir string

	// UseTimestampSubdirs creates date-based subdirectories in the archive.
	// Example: input_archive/2024/01/15/slips.csv
	UseTimestampSubdirs bool

	// now is replaced in tests.
	now func() time.Time
}

// NewFileManager creates a new FileManager with the specified directories.
func NewFileManager(outputDir, inputArchiveDir, logDir string) *FileManager {
	return &FileManager{
		OutputDir:       outputDir,
		InputArchiveDir: inputArchiveDir,
		LogDir:          logDir,
		now:             time.Now,
	}
}

// =============================================================================
// DIRECTORY MANAGEMENT
// =============================================================================

// EnsureDirectories creates all configured directories if they don't exist.
func (fm *FileManager) EnsureDirectories() error {
	for _, dir := range []string{fm.OutputDir, fm.InputArchiveDir, fm.LogDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// =============================================================================
// OUTPUT
// =============================================================================

// WriteOutput writes data as fileName in the output directory. The data is
// written to a temporary file first and renamed into place, so readers never
// see a partial transmission.
//
// PARAMETERS:
//   - fileName: The transmission file name.
//   - data: The transmission text.
//
// RETURNS:
//   - The path of the written file.
//   - ErrOutputExists (wrapped) when the file is already present.
func (fm *FileManager) WriteOutput(fileName string, data []byte) (string, error) {
	finalPath := filepath.Join(fm.OutputDir, fileName)
	if FileExists(finalPath) {
		return "", fmt.Errorf("%w: %s", ErrOutputExists, finalPath)
	}

	tmpPath := filepath.Join(fm.OutputDir, "."+uuid.NewString()+".tmp")
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write temporary file: %w", err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to move output into place: %w", err)
	}

	return finalPath, nil
}

// =============================================================================
// FILE ARCHIVAL
// =============================================================================

// ArchiveInputFile moves an input file to the archive directory.
//
// PARAMETERS:
//   - filePath: The path to the file to archive.
//
// RETURNS:
//   - The path to the archived file.
//   - An error if archival fails.
func (fm *FileManager) ArchiveInputFile(filePath string) (string, error) {
	archivePath := fm.getArchivePath(fm.InputArchiveDir, filePath)

	if err := os.MkdirAll(filepath.Dir(archivePath), 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	if err := os.Rename(filePath, archivePath); err != nil {
		// Cross-device moves fall back to copy and delete.
		if err := copyFile(filePath, archivePath); err != nil {
			return "", fmt.Errorf("failed to copy file to archive: %w", err)
		}
		if err := os.Remove(filePath); err != nil {
			return "", fmt.Errorf("failed to remove original file: %w", err)
		}
	}

	return archivePath, nil
}

// getArchivePath constructs the archive path for a file.
func (fm *FileManager) getArchivePath(archiveDir, filePath string) string {
	fileName := filepath.Base(filePath)

	if fm.UseTimestampSubdirs {
		now := fm.now()
		return filepath.Join(
			archiveDir,
			fmt.Sprintf("%d", now.Year()),
			fmt.Sprintf("%02d", now.Month()),
			fmt.Sprintf("%02d", now.Day()),
			fileName,
		)
	}

	return filepath.Join(archiveDir, fileName)
}

// =============================================================================
// FINDINGS LOG
// =============================================================================

// WriteReportLog writes the findings of one run to a text log.
//
// PARAMETERS:
//   - runID: The run identifier, used in the log name.
//   - source: The file the findings are about.
//   - rep: The findings.
//
// RETURNS:
//   - The path to the log file, or "" when rep is clean.
//   - An error if writing fails.
func (fm *FileManager) WriteReportLog(runID, source string, rep *report.Report) (string, error) {
	if rep == nil || rep.IsClean() {
		return "", nil
	}

	now := fm.now()
	logPath := filepath.Join(fm.LogDir, fmt.Sprintf("findings_%s_%s.txt", now.Format("20060102_150405"), runID))

	file, err := os.Create(logPath)
	if err != nil {
		return "", fmt.Errorf("failed to create findings log: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	fmt.Fprintf(writer, "RL-24 Transmission - Findings Log\n"+
		"Generated: %s\n"+
		"Run:       %s\n"+
		"Source:    %s\n"+
		"Result:    %s\n"+
		"================================================================================\n\n",
		now.Format("2006-01-02 15:04:05"), runID, source, rep.Summary())

	for i, f := range rep.Findings {
		fmt.Fprintf(writer, "#%d %s %s\n", i+1, strings.ToUpper(string(f.Severity)), f.Kind)
		if f.SlipIndex > 0 {
			fmt.Fprintf(writer, "  Slip:     %d\n", f.SlipIndex)
		}
		if f.Field != "" {
			fmt.Fprintf(writer, "  Field:    %s\n", f.Field)
		}
		if f.Line > 0 {
			fmt.Fprintf(writer, "  Position: line %d, column %d\n", f.Line, f.Column)
		}
		fmt.Fprintf(writer, "  Message:  %s\n\n", f.Message)
	}

	writer.WriteString("================================================================================\n" +
		"End of Findings Log\n")

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush findings log: %w", err)
	}

	return logPath, nil
}

// =============================================================================
// FILE DISCOVERY
// =============================================================================

// DiscoverFiles lists the files of dir with one of the given extensions,
// sorted by name. Extensions are compared case-insensitively.
func DiscoverFiles(dir string, extensions ...string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		for _, want := range extensions {
			if ext == strings.ToLower(want) {
				files = append(files, filepath.Join(dir, entry.Name()))
				break
			}
		}
	}

	sort.Strings(files)
	return files, nil
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// copyFile copies a file from src to dst.
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return err
	}

	return destFile.Sync()
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// GetFileSize returns the size of a file in bytes.
func GetFileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
