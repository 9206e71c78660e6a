package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"TrialFeeds/internal/domain"
	"TrialFeeds/internal/ports"
)

// Directory layout under the publish root:
//
//	staging/<runID>/    artifacts being assembled, never externally visible
//	snapshots/<runID>/  promoted snapshot contents
//	current             symlink to the live snapshot; swapped by rename
//	.publish.lock       single-writer lock, holds the owning run id
const (
	stagingDirName   = "staging"
	snapshotsDirName = "snapshots"
	currentLinkName  = "current"
	lockFileName     = ".publish.lock"
	fileMode         = 0o644
	dirMode          = 0o755
)

// Coordinator owns the publish target directory. A run's artifacts are
// staged together, validated as a set, and made visible in one symlink swap;
// any earlier failure leaves the previously promoted snapshot untouched.
type Coordinator struct {
	root   string
	logger *slog.Logger
}

var _ ports.Publisher = (*Coordinator)(nil)

// NewCoordinator wires the publish root directory.
func NewCoordinator(root string, logger *slog.Logger) *Coordinator {
	return &Coordinator{root: root, logger: logger.With("component", "publisher")}
}

// Stage writes every artifact of a run into its private staging directory.
// The run lock is taken here so two runs cannot race toward promotion
// against the same target.
func (c *Coordinator) Stage(ctx context.Context, runID string, artifacts []domain.Artifact) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("stage: %w", err)
	}

	if err := c.acquireLock(runID); err != nil {
		return err
	}

	dir := c.stagingDir(runID)
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return fmt.Errorf("create staging dir: %w: %w", domain.ErrPublish, err)
	}

	for _, art := range artifacts {
		if err := os.WriteFile(filepath.Join(dir, art.Name), art.Data, fileMode); err != nil {
			return fmt.Errorf("stage %s: %w: %w", art.Name, domain.ErrPublish, err)
		}
	}

	c.logger.Debug("artifacts staged", "run_id", runID, "count", len(artifacts))
	return nil
}

// Validate checks the staged set is complete (exactly the expected artifact
// names) and that every JSON document carries the same as_of_utc.
func (c *Coordinator) Validate(ctx context.Context, runID string, want []string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("validate: %w", err)
	}

	dir := c.stagingDir(runID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read staging dir: %w: %w", domain.ErrValidation, err)
	}

	staged := map[string]bool{}
	for _, entry := range entries {
		staged[entry.Name()] = true
	}

	for _, name := range want {
		if !staged[name] {
			return fmt.Errorf("%w: artifact %s missing from staged set", domain.ErrValidation, name)
		}
		delete(staged, name)
	}
	for name := range staged {
		return fmt.Errorf("%w: unexpected artifact %s in staged set", domain.ErrValidation, name)
	}

	if err := c.checkAsOfConsistency(dir, want); err != nil {
		return err
	}

	c.logger.Debug("staged set validated", "run_id", runID, "artifacts", len(want))
	return nil
}

// Promote atomically replaces the published snapshot with the staged one and
// retires its predecessor. The symlink rename is the single visible step.
func (c *Coordinator) Promote(ctx context.Context, runID string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("promote: %w", err)
	}
	defer c.releaseLock(runID)

	snapDir := filepath.Join(c.root, snapshotsDirName, runID)
	if err := os.MkdirAll(filepath.Dir(snapDir), dirMode); err != nil {
		return fmt.Errorf("create snapshots dir: %w: %w", domain.ErrPublish, err)
	}
	if err := os.Rename(c.stagingDir(runID), snapDir); err != nil {
		return fmt.Errorf("move staged set: %w: %w", domain.ErrPublish, err)
	}

	currentLink := filepath.Join(c.root, currentLinkName)
	previous, err := os.Readlink(currentLink)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("inspect current link: %w: %w", domain.ErrPublish, err)
	}

	// Swap via a temp symlink so the flip is one rename.
	tmpLink := filepath.Join(c.root, "."+currentLinkName+"."+runID)
	relTarget := filepath.Join(snapshotsDirName, runID)
	if err := os.Symlink(relTarget, tmpLink); err != nil {
		return fmt.Errorf("prepare current link: %w: %w", domain.ErrPublish, err)
	}
	if err := os.Rename(tmpLink, currentLink); err != nil {
		_ = os.Remove(tmpLink)
		return fmt.Errorf("swap current link: %w: %w", domain.ErrPublish, err)
	}

	if previous != "" && previous != relTarget {
		if err := os.RemoveAll(filepath.Join(c.root, previous)); err != nil {
			c.logger.Warn("could not retire previous snapshot", "path", previous, "error", err)
		}
	}

	c.logger.Info("snapshot promoted", "run_id", runID)
	return nil
}

// Discard removes a run's staging directory and releases its lock. Safe to
// call whether or not the run reached staging.
func (c *Coordinator) Discard(runID string) {
	if err := os.RemoveAll(c.stagingDir(runID)); err != nil {
		c.logger.Warn("could not remove staging dir", "run_id", runID, "error", err)
	}
	c.releaseLock(runID)
}

// CurrentDir resolves the live snapshot directory, if any.
func (c *Coordinator) CurrentDir() (string, error) {
	target, err := os.Readlink(filepath.Join(c.root, currentLinkName))
	if err != nil {
		return "", err
	}
	return filepath.Join(c.root, target), nil
}

func (c *Coordinator) stagingDir(runID string) string {
	return filepath.Join(c.root, stagingDirName, runID)
}

func (c *Coordinator) acquireLock(runID string) error {
	if err := os.MkdirAll(c.root, dirMode); err != nil {
		return fmt.Errorf("create publish root: %w: %w", domain.ErrPublish, err)
	}

	path := filepath.Join(c.root, lockFileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, fileMode)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			owner, _ := os.ReadFile(path)
			return fmt.Errorf("%w: publish target locked by run %s", domain.ErrPublish, string(owner))
		}
		return fmt.Errorf("acquire publish lock: %w: %w", domain.ErrPublish, err)
	}
	_, writeErr := f.WriteString(runID)
	closeErr := f.Close()
	if writeErr != nil || closeErr != nil {
		_ = os.Remove(path)
		return fmt.Errorf("write publish lock: %w", domain.ErrPublish)
	}
	return nil
}

func (c *Coordinator) releaseLock(runID string) {
	path := filepath.Join(c.root, lockFileName)
	owner, err := os.ReadFile(path)
	if err != nil || string(owner) != runID {
		return
	}
	if err := os.Remove(path); err != nil {
		c.logger.Warn("could not release publish lock", "run_id", runID, "error", err)
	}
}

// checkAsOfConsistency parses meta.as_of_utc out of every staged JSON
// document and rejects the set when they disagree.
func (c *Coordinator) checkAsOfConsistency(dir string, names []string) error {
	type metaEnvelope struct {
		Meta domain.Meta `json:"meta"`
	}

	var reference string
	for _, name := range names {
		if filepath.Ext(name) != ".json" {
			continue
		}

		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("read staged %s: %w: %w", name, domain.ErrValidation, err)
		}
		var env metaEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return fmt.Errorf("parse staged %s: %w: %w", name, domain.ErrValidation, err)
		}
		if env.Meta.AsOfUTC.IsZero() {
			return fmt.Errorf("%w: staged %s has no as_of_utc", domain.ErrValidation, name)
		}

		asOf := env.Meta.AsOfUTC.UTC().Format(time.RFC3339)
		if reference == "" {
			reference = asOf
			continue
		}
		if asOf != reference {
			return fmt.Errorf("%w: %s as_of_utc %s differs from %s", domain.ErrValidation, name, asOf, reference)
		}
	}
	return nil
}
