package recorder

import (
	"encoding/csv"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Stats summarizes the detections log.
type Stats struct {
	Rows     int
	PerLabel map[string]int
}

// Summarize streams the detections log and counts rows and labels. A missing
// log yields empty stats, not an error.
func Summarize(csvPath string) (*Stats, error) {
	stats := &Stats{PerLabel: make(map[string]int)}

	f, err := os.Open(csvPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return stats, nil
		}
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	first := true
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if first {
			first = false
			if len(record) > 0 && record[0] == csvHeader[0] {
				continue
			}
		}
		if len(record) < 2 {
			continue
		}
		stats.Rows++
		stats.PerLabel[record[1]]++
	}

	return stats, nil
}

// DirSize sums the sizes of all regular files under dir. A missing directory
// counts as zero.
func DirSize(dir string) (int64, error) {
	var size int64
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		size += info.Size()
		return nil
	})
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return size, nil
}
