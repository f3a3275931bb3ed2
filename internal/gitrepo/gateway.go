// Package gitrepo wraps the durable versioning backend behind a small
// gateway interface. The default implementation shells out to the git
// executable; an in-memory implementation serves tests and hosts without
// git. Which one a project gets is decided once, at construction time.
package gitrepo

import (
	"context"

	"github.com/pders01/labtrail/internal/models"
)

// Gateway exposes the versioning primitives the history engine needs.
// Implementations own nothing beyond a handle to the repository location.
type Gateway interface {
	// Init prepares the project directory as a repository. Fails with
	// ErrRepoInit if the path is unwritable or holds an incompatible repo.
	Init(ctx context.Context) error

	// IsRepo reports whether the path is an initialized repository.
	IsRepo() bool

	// Status describes the working tree. It never fails for "not a repo";
	// it reports IsRepo: false instead.
	Status(ctx context.Context) (models.RepoStatus, error)

	// Commit records the current working tree as a new snapshot. Fails with
	// ErrNoChanges when the tree is clean.
	Commit(ctx context.Context, message string) (models.Snapshot, error)

	// Log returns up to limit snapshots, newest first. A limit <= 0 means
	// the backend default window.
	Log(ctx context.Context, limit int) ([]models.Snapshot, error)

	// Checkout overwrites the working tree to match the snapshot. Callers
	// are responsible for not discarding uncommitted work (see engine
	// restore policy). Fails with ErrSnapshotNotFound for unknown ids.
	Checkout(ctx context.Context, snapshotID string) error

	// Diff compares two snapshots.
	Diff(ctx context.Context, fromID, toID string) (models.Diff, error)

	// ReadFileAt returns a file's content as of a snapshot. Fails with
	// ErrFileNotFoundAtSnapshot when the path is absent from the snapshot.
	ReadFileAt(ctx context.Context, snapshotID, path string) (string, error)
}
