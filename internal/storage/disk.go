package storage

import (
	"io/fs"
	"os"
	"path/filepath"
)

// DiskUsage returns the bytes used by the database file and its WAL and
// shared-memory companions.
func (s *SQLiteStore) DiskUsage() (int64, error) {
	return DiskUsageBytes(s.path, s.path+"-wal", s.path+"-shm")
}

// DiskUsageBytes sums the sizes of paths. Directories are walked; missing
// and empty paths count as zero.
func DiskUsageBytes(paths ...string) (int64, error) {
	var total int64
	for _, p := range paths {
		if p == "" {
			continue
		}
		info, err := os.Stat(p)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return 0, err
		}
		if !info.IsDir() {
			total += info.Size()
			continue
		}
		err = filepath.WalkDir(p, func(_ string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return err
			}
			fi, err := d.Info()
			if err != nil {
				return err
			}
			total += fi.Size()
			return nil
		})
		if err != nil {
			return 0, err
		}
	}
	return total, nil
}
