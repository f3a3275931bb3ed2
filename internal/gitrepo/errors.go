package gitrepo

import "errors"

// Sentinel errors for repository operations. Callers match with errors.Is;
// wrapped messages carry the project path and snapshot id for display.
var (
	// ErrRepoInit indicates the path could not be initialized as a repository
	// (unwritable, or already occupied by an incompatible repository).
	ErrRepoInit = errors.New("repository initialization failed")

	// ErrNoChanges indicates a commit was requested with a clean working
	// tree. Non-fatal; the scheduler swallows it.
	ErrNoChanges = errors.New("no changes to commit")

	// ErrSnapshotNotFound indicates an unknown snapshot id.
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrRestoreConflict indicates uncommitted changes exist at restore time
	// and the caller asked for a clean tree.
	ErrRestoreConflict = errors.New("uncommitted changes present")

	// ErrCommitIO indicates the backend failed while writing a snapshot.
	// Retried with bounded backoff inside the scheduler before surfacing.
	ErrCommitIO = errors.New("commit failed")

	// ErrFileNotFoundAtSnapshot indicates the file does not exist in the
	// requested snapshot.
	ErrFileNotFoundAtSnapshot = errors.New("file not found at snapshot")
)
