package services

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"stackguard/internal/logger"
)

/**
 * ChangeWatcher 受管文件变更监听
 * @description
 * - Push path of drift detection: reacts to external create/modify/delete on
 *   governed files and triggers an immediate repair validation for the
 *   affected rules only
 * - Bursts are debounced (~1s) so an editor's write-rename dance triggers one
 *   validation, not five
 * - When native notification is unavailable the watcher degrades to polling
 *   every pollInterval, so "drift is detected within N minutes" holds
 *   unconditionally
 * - Shares the validator entry point (and its per-path locks) with the
 *   scheduled pull path, so concurrent triggers are safe
 */
type ChangeWatcher struct {
	validator    *Validator
	paths        []string
	debounce     time.Duration
	pollInterval time.Duration
	log          *logger.Logger
	loops        sync.WaitGroup
}

func NewChangeWatcher(validator *Validator, paths []string, pollInterval time.Duration) *ChangeWatcher {
	return &ChangeWatcher{
		validator:    validator,
		paths:        paths,
		debounce:     time.Second,
		pollInterval: pollInterval,
		log:          logger.ForComponent("watcher"),
	}
}

/**
 * Start watching until the context is cancelled
 * @param {context.Context} ctx - Daemon lifetime context
 * @description
 * - Watches the parent directories of every governed path (watching the file
 *   itself breaks on editors that replace-by-rename)
 * - Falls back to the polling loop when fsnotify cannot start
 */
func (w *ChangeWatcher) Start(ctx context.Context) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.log.Warnf("Native change notification unavailable (%v), falling back to polling", err)
		w.loops.Add(1)
		go func() { defer w.loops.Done(); w.pollLoop(ctx) }()
		return
	}

	governed := map[string]bool{}
	dirs := map[string]bool{}
	for _, p := range w.paths {
		governed[filepath.Clean(p)] = true
		dirs[filepath.Dir(p)] = true
	}
	watched := 0
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			w.log.Warnf("Cannot watch %s: %v", dir, err)
			continue
		}
		watched++
	}
	if watched == 0 {
		watcher.Close()
		w.log.Warnf("No governed directory could be watched, falling back to polling")
		w.loops.Add(1)
		go func() { defer w.loops.Done(); w.pollLoop(ctx) }()
		return
	}

	w.log.Infof("Watching %d directories for %d governed files", watched, len(governed))
	w.loops.Add(1)
	go func() { defer w.loops.Done(); w.eventLoop(ctx, watcher, governed) }()
}

// Wait blocks until the watch loop has exited after context cancellation.
// Once Wait returns, no further change-triggered validation fires.
func (w *ChangeWatcher) Wait() {
	w.loops.Wait()
}

func (w *ChangeWatcher) eventLoop(ctx context.Context, watcher *fsnotify.Watcher, governed map[string]bool) {
	defer watcher.Close()

	pending := map[string]bool{}
	var timer *time.Timer
	var timerC <-chan time.Time

	flush := func() {
		for path := range pending {
			w.revalidate(path)
		}
		pending = map[string]bool{}
		if timer != nil {
			timer.Stop()
			timer = nil
			timerC = nil
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			path := filepath.Clean(event.Name)
			if !governed[path] {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.log.Debugf("Change on %s (%s)", path, event.Op)
			pending[path] = true
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				// Drain a fired-but-unread tick before rearming, otherwise a
				// stale tick would cut the debounce window short
				if !timer.Stop() {
					select {
					case <-timerC:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
		case <-timerC:
			if ctx.Err() != nil {
				return
			}
			flush()
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.log.Warnf("Watcher error: %v", err)
		}
	}
}

// revalidate runs a repair validation for the rules governing one path.
func (w *ChangeWatcher) revalidate(path string) {
	for _, rule := range w.validator.RulesForPath(path) {
		result := w.validator.ValidateRule(rule, true)
		if result.WasDrifted {
			w.log.Infof("Change-triggered validation of [%s]: drifted=%v fixed=%v",
				rule.Name, result.WasDrifted, result.Fixed)
		}
	}
}

// pollLoop is the fallback pull path when fsnotify is unavailable.
func (w *ChangeWatcher) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			w.validator.Validate(true)
		}
	}
}
