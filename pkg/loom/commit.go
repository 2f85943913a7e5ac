package loom

import (
	"time"

	"github.com/google/uuid"
)

// CommitRecord summarizes one committed patch batch.
type CommitRecord struct {
	Runtime  uuid.UUID
	Root     uuid.UUID // uuid.Nil when the origin is not under a mounted root
	Seq      uint64
	Instance uint64 // Origin instance
	Name     string
	Created  int
	Removed  int
	Replaced int
	Text     int
	Updated  int
	At       time.Time // Scheduler clock
}

// Patches returns the number of patches in the batch.
func (r CommitRecord) Patches() int {
	return r.Created + r.Removed + r.Replaced + r.Text + r.Updated
}

// OnCommit subscribes fn to commit records. The returned function
// unsubscribes.
func (rt *Runtime) OnCommit(fn func(CommitRecord)) func() {
	rt.commitSeq++
	id := rt.commitSeq
	rt.commitSubs[id] = fn
	return func() { delete(rt.commitSubs, id) }
}

// Commits returns the number of batches committed so far.
func (rt *Runtime) Commits() uint64 { return rt.commits }

func (rt *Runtime) emitCommit(rec CommitRecord) {
	rt.commits++
	rec.Seq = rt.commits
	for _, fn := range rt.commitSubs {
		fn(rec)
	}
}
