package store

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"localstore/internal/logging"

	"golang.org/x/sync/errgroup"
)

// CopyTo recursively copies the contents of folder ("" for the whole
// store) into dest, creating it if needed. Pure pass-through of the
// on-disk tree: the destination is not a managed store and no index is
// built for it. Temporary files are not carried over. Files copy
// concurrently, directory structure first.
func (st *Store) CopyTo(ctx context.Context, dest, folder string) error {
	if dest == "" {
		return fmt.Errorf("destination directory must not be empty")
	}
	src, err := st.resolveFolder(folder)
	if err != nil {
		return err
	}
	destAbs, err := filepath.Abs(dest)
	if err != nil {
		return fmt.Errorf("failed to resolve destination %q: %w", dest, err)
	}
	if underDir(destAbs, src) {
		return fmt.Errorf("destination %s is inside the source tree", destAbs)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)

	walkErr := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(destAbs, rel)

		if d.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		if isTempName(d.Name()) {
			return nil
		}

		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			return copyFile(path, target)
		})
		return nil
	})
	if walkErr != nil {
		_ = g.Wait()
		return fmt.Errorf("failed to copy %s to %s: %w", src, destAbs, walkErr)
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to copy %s to %s: %w", src, destAbs, err)
	}

	logging.Store("copied %s to %s", src, destAbs)
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
