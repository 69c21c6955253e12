package home

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	// DefaultDirName is the default name for the lumina home directory.
	DefaultDirName = ".lumina"

	// DataDirName is the subdirectory holding the book database.
	DataDirName = "data"

	// BooksDirName is the subdirectory holding source PDFs and generated audio.
	BooksDirName = "books"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"
)

// Dir represents the lumina home directory structure:
//
//	{home}/config.yaml
//	{home}/data/                                   book database
//	{home}/books/{book}/source.pdf
//	{home}/books/{book}/audio/{chapter}/part_0000.wav
//	{home}/books/{book}/staging/{chapter}-{run}/   in-flight generation output
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.lumina).
func New(path string) (*Dir, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}

	return &Dir{path: path}, nil
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string {
	return d.path
}

// DataPath returns the path to the data directory.
func (d *Dir) DataPath() string {
	return filepath.Join(d.path, DataDirName)
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// EnsureExists creates the home directory and subdirectories if they don't exist.
func (d *Dir) EnsureExists() error {
	for _, p := range []string{d.DataPath(), d.BooksDir()} {
		if err := os.MkdirAll(p, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", p, err)
		}
	}
	return nil
}

// Exists returns true if the home directory exists.
func (d *Dir) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// ConfigExists returns true if the config file exists in the home directory.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}

// BooksDir returns the root directory for per-book files.
func (d *Dir) BooksDir() string {
	return filepath.Join(d.path, BooksDirName)
}

// BookDir returns the directory for a single book.
func (d *Dir) BookDir(bookID string) string {
	return filepath.Join(d.BooksDir(), SafeName(bookID))
}

// SourcePath returns the path of the uploaded PDF for a book.
func (d *Dir) SourcePath(bookID string) string {
	return filepath.Join(d.BookDir(bookID), "source.pdf")
}

// BookAudioDir returns the audio directory for a specific book.
func (d *Dir) BookAudioDir(bookID string) string {
	return filepath.Join(d.BookDir(bookID), "audio")
}

// ChapterAudioDir returns the directory holding a chapter's published audio parts.
func (d *Dir) ChapterAudioDir(bookID, chapterID string) string {
	return filepath.Join(d.BookAudioDir(bookID), SafeName(chapterID))
}

// PartFileName returns the file name of the audio part at index i.
func PartFileName(i int, format string) string {
	return fmt.Sprintf("part_%04d.%s", i, format)
}

// PartAudioPath returns the published path of a chapter's audio part.
func (d *Dir) PartAudioPath(bookID, chapterID string, i int, format string) string {
	return filepath.Join(d.ChapterAudioDir(bookID, chapterID), PartFileName(i, format))
}

// StagingDir returns the scratch directory for one generation run of a chapter.
func (d *Dir) StagingDir(bookID, chapterID, runID string) string {
	return filepath.Join(d.BookDir(bookID), "staging", SafeName(chapterID)+"-"+SafeName(runID))
}

// EnsureBookDir creates the directory for a book.
func (d *Dir) EnsureBookDir(bookID string) error {
	return os.MkdirAll(d.BookDir(bookID), 0o755)
}

// RemoveBook deletes every file stored for a book.
func (d *Dir) RemoveBook(bookID string) error {
	return os.RemoveAll(d.BookDir(bookID))
}

// AudioSwap is a chapter audio directory replaced by PublishChapterAudio.
// The previous audio stays on disk until Commit, and Rollback restores it.
type AudioSwap struct {
	dest    string
	old     string
	staging string
	hadOld  bool
}

// PublishChapterAudio moves a finished staging directory into place as the
// chapter's audio directory. The caller must Commit once the new parts are
// recorded, or Rollback to put the previous audio back.
func (d *Dir) PublishChapterAudio(bookID, chapterID, stagingDir string) (*AudioSwap, error) {
	dest := d.ChapterAudioDir(bookID, chapterID)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create audio dir: %w", err)
	}

	swap := &AudioSwap{dest: dest, old: dest + ".old", staging: stagingDir}
	_ = os.RemoveAll(swap.old)
	if _, err := os.Stat(dest); err == nil {
		if err := os.Rename(dest, swap.old); err != nil {
			return nil, fmt.Errorf("failed to move previous audio aside: %w", err)
		}
		swap.hadOld = true
	}
	if err := os.Rename(stagingDir, dest); err != nil {
		swap.restore()
		return nil, fmt.Errorf("failed to publish audio: %w", err)
	}
	return swap, nil
}

// Commit discards the previous audio.
func (s *AudioSwap) Commit() error {
	if !s.hadOld {
		return nil
	}
	return os.RemoveAll(s.old)
}

// Rollback moves the new audio back to its staging directory and restores
// the previous audio.
func (s *AudioSwap) Rollback() error {
	if err := os.Rename(s.dest, s.staging); err != nil {
		return fmt.Errorf("failed to withdraw new audio: %w", err)
	}
	return s.restore()
}

func (s *AudioSwap) restore() error {
	if !s.hadOld {
		return nil
	}
	if err := os.Rename(s.old, s.dest); err != nil {
		return fmt.Errorf("failed to restore previous audio: %w", err)
	}
	return nil
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SafeName maps an arbitrary identifier onto a single safe path element.
func SafeName(s string) string {
	s = unsafeChars.ReplaceAllString(s, "-")
	s = strings.Trim(s, ".-")
	if s == "" {
		return "_"
	}
	return s
}
