// Package archive records the patches a runtime sends: an in-memory ring
// for recent history and an S3 archiver for long-term storage.
package archive

import "time"

// Record is one sent patch.
type Record struct {
	Session string    // Runtime that sent the patch
	Seq     uint64    // 1-based position in the session's patch stream
	Patch   []byte    // Encoded patch, as sent
	SentAt  time.Time // When the patch was sent
}

// Recorder receives every patch after it was sent successfully.
// Implementations must not retain Patch beyond the call without copying.
type Recorder interface {
	Record(r Record)
}

// Tee fans a record out to every recorder.
func Tee(recorders ...Recorder) Recorder {
	return tee(recorders)
}

type tee []Recorder

func (t tee) Record(r Record) {
	for _, rec := range t {
		rec.Record(r)
	}
}
