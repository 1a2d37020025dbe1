package source

import (
	"fmt"
	"io/fs"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
)

// Resolution errors. Callers match them with errors.Is; the concrete error
// carries the offending path in its message.
var (
	// ErrInvalidArgument indicates an absent path or ledger was supplied.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound indicates the root file or one of its imports does not exist.
	ErrNotFound = errors.New("not found")

	// ErrRead indicates a file in the import closure could not be read or decoded.
	ErrRead = errors.New("read error")
)

// statFile stats path on fsys, classifying failures as ErrNotFound or ErrRead.
func statFile(fsys afero.Fs, path string) (fs.FileInfo, error) {
	info, err := fsys.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrapf(ErrNotFound, "file %s", path)
		}
		return nil, withKind(ErrRead, err, "stat %s", path)
	}
	return info, nil
}

// withKind wraps kind, not cause, so kind stays in the unwrap chain. The
// message reads "<format>: <cause>: <kind>" and cause is kept as a secondary error.
func withKind(kind, cause error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	return errors.WithSecondaryError(errors.Wrapf(kind, "%s: %v", msg, cause), cause)
}
