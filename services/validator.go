package services

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"time"

	"stackguard/internal/config"
	"stackguard/internal/logger"
	"stackguard/internal/models"
)

/**
 * Validator 配置漂移检测与修复
 * @description
 * - Evaluates every ConfigRule against the filesystem and optionally repairs
 * - One entry point serves both trigger sources: the scheduled pass (pull)
 *   and the change watcher (push); per-path locks make concurrent calls safe
 * - Fixers are idempotent, so repeated scheduling is harmless: the second of
 *   two back-to-back repair passes reports zero drift
 */
type Validator struct {
	rules       []config.ConfigRule
	backups     *BackupManager
	locks       *PathLocks
	lockTimeout time.Duration
	log         *logger.Logger
}

func NewValidator(rules []config.ConfigRule, backups *BackupManager, locks *PathLocks, lockTimeout time.Duration) *Validator {
	return &Validator{
		rules:       rules,
		backups:     backups,
		locks:       locks,
		lockTimeout: lockTimeout,
		log:         logger.ForComponent("validator"),
	}
}

/**
 * Validate every rule
 * @param {bool} repair - Apply fixers to drifted files
 * @returns {[]models.DriftResult} One result per rule, never aborts midway
 */
func (v *Validator) Validate(repair bool) []models.DriftResult {
	results := make([]models.DriftResult, 0, len(v.rules))
	for _, rule := range v.rules {
		results = append(results, v.ValidateRule(rule, repair))
	}
	return results
}

// RuleForPath returns the rules governing the given file path.
func (v *Validator) RulesForPath(path string) []config.ConfigRule {
	var matched []config.ConfigRule
	for _, rule := range v.rules {
		if rule.Path == path {
			matched = append(matched, rule)
		}
	}
	return matched
}

/**
 * Validate one rule, optionally repairing
 * @param {config.ConfigRule} rule - The governed file and its expected state
 * @param {bool} repair - Apply the fixer on drift
 * @returns {models.DriftResult} wasDrifted / fixed / unfixable verdict
 * @description
 * - A file absent where content is expected counts as drifted
 * - The repair path: per-path lock -> re-check (another trigger may have
 *   fixed it already) -> pre-fix snapshot -> fixer -> confirm
 * - Confirmation failure escalates as unfixable; it is never auto-retried
 * - Lock contention beyond the bound is transient: skipped, next pass retries
 */
func (v *Validator) ValidateRule(rule config.ConfigRule, repair bool) models.DriftResult {
	result := models.DriftResult{Rule: rule.Name, Path: rule.Path}

	content, exists, err := readGoverned(rule.Path)
	if err != nil {
		result.Detail = fmt.Sprintf("read failed: %v", err)
		v.log.Errorf("Rule [%s]: cannot read %s: %v", rule.Name, rule.Path, err)
		return result
	}

	matched, detail := evaluateMatcher(&rule.Matcher, content, exists)
	if matched {
		return result
	}
	result.WasDrifted = true
	result.Detail = detail

	if !repair {
		recordDrift(rule.Name, false)
		v.log.Warnf("Rule [%s]: drift detected on %s (%s)", rule.Name, rule.Path, detail)
		return result
	}

	release, err := v.locks.Acquire(rule.Path, v.lockTimeout)
	if err != nil {
		// LockTimeout is transient: the next scheduled pass retries
		result.Detail = fmt.Sprintf("lock contention on %s, deferred to next pass", rule.Path)
		v.log.Warnf("Rule [%s]: %s", rule.Name, result.Detail)
		return result
	}
	defer release()

	// Re-check under the lock; the other trigger source may have fixed it
	content, exists, err = readGoverned(rule.Path)
	if err != nil {
		result.Detail = fmt.Sprintf("read failed: %v", err)
		return result
	}
	if matched, _ = evaluateMatcher(&rule.Matcher, content, exists); matched {
		result.WasDrifted = false
		result.Detail = ""
		return result
	}

	// Snapshot the drifted state before mutating anything
	if _, err := v.backups.Snapshot(models.ReasonPreFix); err != nil {
		result.Detail = fmt.Sprintf("pre-fix backup failed: %v", err)
		v.log.Errorf("Rule [%s]: refusing to fix without pre-fix backup: %v", rule.Name, err)
		return result
	}

	if _, err := applyFixer(&rule.Fixer, rule.Path, content, exists); err != nil {
		result.Unfixable = true
		result.Detail = fmt.Sprintf("fixer failed: %v", err)
		recordDrift(rule.Name, false)
		v.log.Errorf("Rule [%s]: UNFIXABLE drift on %s: %v", rule.Name, rule.Path, err)
		return result
	}

	// Confirm the fix took by re-reading; escalate instead of retrying
	fixed, exists, err := readGoverned(rule.Path)
	if err != nil {
		result.Unfixable = true
		result.Detail = fmt.Sprintf("post-fix read failed: %v", err)
		recordDrift(rule.Name, false)
		return result
	}
	if matched, detail = evaluateMatcher(&rule.Matcher, fixed, exists); !matched {
		result.Unfixable = true
		result.Detail = fmt.Sprintf("fix did not converge: %s", detail)
		recordDrift(rule.Name, false)
		v.log.Errorf("Rule [%s]: UNFIXABLE drift on %s: fixer output still fails matcher", rule.Name, rule.Path)
		return result
	}

	result.Fixed = true
	recordDrift(rule.Name, true)
	v.log.Infof("Rule [%s]: drift on %s repaired", rule.Name, rule.Path)
	return result
}

func readGoverned(path string) (content []byte, exists bool, err error) {
	content, err = os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return content, true, nil
}

/**
 * Evaluate a matcher against file content
 * @returns {bool} true when the file is in its expected state
 * @returns {string} Human-readable drift detail when not matched
 */
func evaluateMatcher(m *config.MatcherSpec, content []byte, exists bool) (bool, string) {
	if !exists {
		return false, "file is absent"
	}
	switch m.Type {
	case "exact":
		if string(content) == m.Value {
			return true, ""
		}
		return false, "content differs from expected value"
	case "regex":
		re, err := regexp.Compile(m.Pattern)
		if err != nil {
			return false, fmt.Sprintf("invalid matcher pattern: %v", err)
		}
		if re.Match(content) {
			return true, ""
		}
		return false, fmt.Sprintf("content does not match /%s/", m.Pattern)
	case "json_key":
		var doc map[string]interface{}
		if err := json.Unmarshal(content, &doc); err != nil {
			return false, fmt.Sprintf("not valid JSON: %v", err)
		}
		got, ok := doc[m.Key]
		if !ok {
			return false, fmt.Sprintf("key '%s' is absent", m.Key)
		}
		if fmt.Sprintf("%v", got) == m.Want {
			return true, ""
		}
		return false, fmt.Sprintf("key '%s' is '%v', want '%s'", m.Key, got, m.Want)
	default:
		return false, fmt.Sprintf("unknown matcher type '%s'", m.Type)
	}
}

/**
 * Apply a fixer and write the result back
 * @returns {[]byte} The content written, for confirmation
 * @description
 * - Preserves the file's previous mode; new files are created 0644
 * - Every fixer maps any failing input to the same passing output, so
 *   applying it to its own output is a no-op
 */
func applyFixer(f *config.FixerSpec, path string, content []byte, exists bool) ([]byte, error) {
	mode := fs.FileMode(0644)
	if exists {
		if info, err := os.Stat(path); err == nil {
			mode = info.Mode().Perm()
		}
	}

	var fixed []byte
	switch f.Type {
	case "write":
		fixed = []byte(f.Content)
	case "regex_replace":
		re, err := regexp.Compile(f.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid fixer pattern: %w", err)
		}
		if !exists {
			return nil, fmt.Errorf("cannot regex-replace an absent file")
		}
		fixed = re.ReplaceAll(content, []byte(f.Replacement))
	case "set_json_key":
		doc := map[string]interface{}{}
		if exists {
			if err := json.Unmarshal(content, &doc); err != nil {
				// Unparseable JSON gets rebuilt around the one governed key
				doc = map[string]interface{}{}
			}
		}
		doc[f.Key] = f.Value
		out, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, err
		}
		fixed = append(out, '\n')
	default:
		return nil, fmt.Errorf("unknown fixer type '%s'", f.Type)
	}

	if err := os.WriteFile(path, fixed, mode); err != nil {
		return nil, err
	}
	return fixed, nil
}
