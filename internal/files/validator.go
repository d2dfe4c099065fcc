package files

import (
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/aman162000/sendBIT.ch/internal/transfer"
)

// ErrNoFiles is returned when nothing was passed to ValidateFiles.
var ErrNoFiles = errors.New("no files specified")

// FileInfo holds information about a file to be sent
type FileInfo struct {
	// Path is the absolute path to the file
	Path string

	// Name is the filename (without directory)
	Name string

	Size int64

	// Type is the MIME type guessed from the extension
	Type string
}

// ValidateFiles checks that every path is a readable regular file and
// reports all failures at once.
func ValidateFiles(paths []string) ([]FileInfo, error) {
	if len(paths) == 0 {
		return nil, ErrNoFiles
	}

	var (
		infos    []FileInfo
		failures []string
	)
	for _, path := range paths {
		info, err := validateFile(path)
		if err != nil {
			failures = append(failures, err.Error())
			continue
		}
		infos = append(infos, info)
	}

	if len(failures) > 0 {
		return nil, fmt.Errorf("file validation failed:\n  - %s", strings.Join(failures, "\n  - "))
	}
	return infos, nil
}

func validateFile(path string) (FileInfo, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return FileInfo{}, fmt.Errorf("%s: failed to get absolute path: %w", path, err)
	}

	stat, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return FileInfo{}, fmt.Errorf("%s: file does not exist", path)
		}
		return FileInfo{}, fmt.Errorf("%s: failed to stat file: %w", path, err)
	}
	if stat.IsDir() {
		return FileInfo{}, fmt.Errorf("%s: is a directory", path)
	}

	f, err := os.Open(absPath)
	if err != nil {
		return FileInfo{}, fmt.Errorf("%s: cannot open file (check permissions): %w", path, err)
	}
	f.Close()

	mimeType := mime.TypeByExtension(filepath.Ext(absPath))
	if mimeType == "" {
		mimeType = transfer.DefaultMime
	}

	return FileInfo{
		Path: absPath,
		Name: filepath.Base(absPath),
		Size: stat.Size(),
		Type: mimeType,
	}, nil
}

// GetTotalSize returns the total size of all files
func GetTotalSize(infos []FileInfo) int64 {
	var total int64
	for _, f := range infos {
		total += f.Size
	}
	return total
}

// Open opens every file for reading and returns them as transfer
// descriptors. The returned closer releases all handles.
func Open(infos []FileInfo) ([]transfer.OutgoingFile, func(), error) {
	var handles []*os.File
	closeAll := func() {
		for _, h := range handles {
			h.Close()
		}
	}

	out := make([]transfer.OutgoingFile, 0, len(infos))
	for _, info := range infos {
		h, err := os.Open(info.Path)
		if err != nil {
			closeAll()
			return nil, nil, transfer.NewFileError("open", info.Name, err)
		}
		handles = append(handles, h)
		out = append(out, transfer.OutgoingFile{
			Name:   info.Name,
			Mime:   info.Type,
			Size:   info.Size,
			Reader: h,
		})
	}
	return out, closeAll, nil
}
