package config

import (
	"context"
	"fmt"
	"os"
	"time"
)

// fileStamp identifies a version of a file on disk.
type fileStamp struct {
	modTime time.Time
	size    int64
}

func (s fileStamp) same(o fileStamp) bool {
	return s.size == o.size && s.modTime.Equal(o.modTime)
}

func stampOf(path string) (fileStamp, error) {
	info, err := os.Stat(path)
	if err != nil {
		return fileStamp{}, err
	}
	return fileStamp{modTime: info.ModTime(), size: info.Size()}, nil
}

// WatchStations loads stations.yaml, hands it to onUpdate, and then polls the file
// every interval, re-applying it whenever it changes. A reload that fails to read or
// validate is passed to onError and the previous configuration stays in effect.
// The initial load is synchronous; its error is returned.
func WatchStations(ctx context.Context, path string, interval time.Duration, onUpdate func(*StationsConfig), onError func(error)) error {
	if path == "" {
		path = "configs/stations.yaml"
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if onUpdate == nil {
		return fmt.Errorf("watch stations: onUpdate is required")
	}
	if onError == nil {
		onError = func(error) {}
	}

	cfg, err := LoadStationsConfig(path)
	if err != nil {
		return err
	}
	last, err := stampOf(path)
	if err != nil {
		return err
	}
	onUpdate(cfg)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			stamp, err := stampOf(path)
			if err != nil || stamp.same(last) {
				continue
			}
			// Remember the stamp even on failure so a broken file is reported once.
			last = stamp

			cfg, err := LoadStationsConfig(path)
			if err != nil {
				onError(err)
				continue
			}
			onUpdate(cfg)
		}
	}()

	return nil
}
