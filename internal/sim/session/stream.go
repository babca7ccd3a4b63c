package session

import "math/rand"

// stream is the session's seeded random source. It counts draws so a saved
// game resumes the sequence where it stopped instead of replaying it.
type stream struct {
	src   rand.Source64
	draws uint64
}

// newStream seeds a source and skips the first skip values.
func newStream(seed int64, skip uint64) *stream {
	st := &stream{src: rand.NewSource(seed).(rand.Source64)}
	for st.draws < skip {
		st.Int63()
	}
	return st
}

func (st *stream) Int63() int64 {
	st.draws++
	return st.src.Int63()
}

func (st *stream) Uint64() uint64 {
	st.draws++
	return st.src.Uint64()
}

func (st *stream) Seed(seed int64) {
	st.src.Seed(seed)
	st.draws = 0
}
