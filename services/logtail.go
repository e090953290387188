package services

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"stackguard/internal/env"
)

// KnownComponents lists the per-component log files the daemon maintains.
var KnownComponents = []string{"supervisor", "validator", "backup", "restore", "watcher", "reset"}

func componentLogPath(component string) string {
	return filepath.Join(env.LogsDir(), component+".log")
}

/**
 * Read the last n lines of one component's log
 * @param {string} component - Component name (supervisor/validator/backup/...)
 * @param {int} n - Number of trailing lines, <=0 means all
 * @returns {[]string} Trailing lines, oldest first
 */
func TailComponentLog(component string, n int) ([]string, error) {
	file, err := os.Open(componentLogPath(component))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no log recorded for component '%s'", component)
		}
		return nil, err
	}
	defer file.Close()

	// Component logs are bounded by log rotation outside this process, a
	// line scan is fine here
	var lines []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if n > 0 && len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines, nil
}

/**
 * Follow one component's log, writing new lines to out
 * @param {context.Context} ctx - Cancel to stop following
 * @param {string} component - Component name
 * @param {io.Writer} out - Destination for appended lines
 * @description
 * - Polls the file for growth; a truncated file (rotation) restarts from zero
 */
func FollowComponentLog(ctx context.Context, component string, out io.Writer) error {
	path := componentLogPath(component)
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	offset, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		return err
	}

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	buf := make([]byte, 32*1024)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			info, err := os.Stat(path)
			if err != nil {
				continue
			}
			if info.Size() < offset {
				offset = 0
			}
			if info.Size() == offset {
				continue
			}
			if _, err := file.Seek(offset, io.SeekStart); err != nil {
				return err
			}
			for {
				n, err := file.Read(buf)
				if n > 0 {
					offset += int64(n)
					if _, werr := out.Write(buf[:n]); werr != nil {
						return werr
					}
				}
				if err != nil {
					break
				}
			}
		}
	}
}
