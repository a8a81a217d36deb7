package store

import (
	"io/fs"
	"os"
	"path/filepath"

	"localstore/internal/logging"
)

// scanResult is what a bootstrap walk found: the rebuilt key mapping plus
// any stale temporary files left behind by a crashed write.
type scanResult struct {
	records   map[string]string
	staleTemp []string
	skipped   int
}

// scanTree walks root recursively, decoding every non-temporary file into
// the key mapping. Corrupt or foreign files are logged and skipped; they
// never abort the walk. Directories are descended unconditionally.
func scanTree(root string) (scanResult, error) {
	res := scanResult{records: make(map[string]string)}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			logging.Get(logging.CategoryScan).Warnf("scan: cannot access %s: %v", path, err)
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if isTempName(d.Name()) {
			res.staleTemp = append(res.staleTemp, path)
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			logging.Get(logging.CategoryScan).Warnf("scan: failed to read %s: %v", path, err)
			res.skipped++
			return nil
		}
		rec, err := decodeRecord(data)
		if err != nil {
			logging.Get(logging.CategoryScan).Warnf("scan: skipping %s: %v", path, err)
			res.skipped++
			return nil
		}
		res.records[rec.Key] = path
		return nil
	})
	if err != nil {
		return res, err
	}

	logging.Scan("scanned %s: %d records, %d skipped, %d stale temp files",
		root, len(res.records), res.skipped, len(res.staleTemp))
	return res, nil
}

// sweepStaleTemp deletes leftover temporary files found by a scan. Best
// effort: a failed unlink is logged, never fatal.
func sweepStaleTemp(paths []string) {
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logging.Get(logging.CategoryScan).Warnf("sweep: failed to remove stale temp file %s: %v", path, err)
			continue
		}
		logging.ScanDebug("sweep: removed stale temp file %s", path)
	}
}
