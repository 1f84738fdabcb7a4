package termbank

import "fmt"

// ArchiveFormatError means the container itself could not be read.
type ArchiveFormatError struct {
	Archive string
	Err     error
}

func (e *ArchiveFormatError) Error() string {
	return fmt.Sprintf("archive %s: unreadable container: %v", e.Archive, e.Err)
}

func (e *ArchiveFormatError) Unwrap() error { return e.Err }

// EntryDecodeError means a shard does not hold a JSON array of well-formed
// records. Position is -1 when the shard as a whole failed to parse.
type EntryDecodeError struct {
	Archive  string
	Shard    string
	Position int
	Err      error
}

func (e *EntryDecodeError) Error() string {
	where := e.Shard
	if e.Archive != "" {
		where = e.Archive + ":" + e.Shard
	}
	if e.Position >= 0 {
		return fmt.Sprintf("%s: record %d: %v", where, e.Position, e.Err)
	}
	return fmt.Sprintf("%s: %v", where, e.Err)
}

func (e *EntryDecodeError) Unwrap() error { return e.Err }

// SinkAccessError covers an unreachable table, a wrong schema or a failed
// write at the connection level.
type SinkAccessError struct {
	Op  string
	Err error
}

func (e *SinkAccessError) Error() string {
	return fmt.Sprintf("table %s: %v", e.Op, e.Err)
}

func (e *SinkAccessError) Unwrap() error { return e.Err }

// ExportIntegrityError means a row cannot be turned back into an archive
// entry (missing field, missing or duplicate provenance).
type ExportIntegrityError struct {
	Shard    string
	Position int
	Word     string
	Reason   string
}

func (e *ExportIntegrityError) Error() string {
	if e.Shard != "" {
		return fmt.Sprintf("export integrity: %s[%d] %q: %s", e.Shard, e.Position, e.Word, e.Reason)
	}
	return fmt.Sprintf("export integrity: %q: %s", e.Word, e.Reason)
}

// LossyGlossJoinWarning is advisory: a gloss contains GlossSeparator, so
// splitting the stored string will not reproduce the original list.
type LossyGlossJoinWarning struct {
	Word     string
	Shard    string
	Position int
	Gloss    string
}

func (w *LossyGlossJoinWarning) Error() string {
	return fmt.Sprintf("gloss %q of %q contains %q and will not split back losslessly", w.Gloss, w.Word, GlossSeparator)
}
