package termbank

// Stage names the step a progress Event refers to.
type Stage string

const (
	StageArchive Stage = "archive" // an archive finished importing
	StageShard   Stage = "shard"   // a shard was read or written
	StageIndex   Stage = "index"   // table indexes were built
	StageFailed  Stage = "failed"  // an archive was skipped after an error
	StageDone    Stage = "done"
)

// Event is a structured progress notification. Core packages emit these
// through an OnProgress callback; rendering them is up to the caller.
type Event struct {
	Stage   Stage
	Archive string
	Shard   string
	Entries int // entries covered by this event
	Err     error
}
