// Package prof is the sample store for the D_PROF device (§6's device
// table): it builds a pprof-format profile from per-tick samples taken
// by the scheduler tick handler. Record is fed by sched.Tick; no device
// read path in this tree calls Snapshot. Wiring
// github.com/google/pprof/profile lets ZenithOS hand a caller a format
// that standard `go tool pprof` can already render, rather than
// inventing a bespoke sample encoding the way biscuit's unfinished
// stats package does.
package prof

import (
	"bytes"
	"sync"

	"github.com/google/pprof/profile"
)

// Sample is one scheduler-tick snapshot: the pid that was running and
// a frame label (sched.Tick records the running process's name).
type Sample struct {
	Pid   int
	Frame string
}

// Recorder accumulates samples until Snapshot is asked to serialize them.
// A single instance is wired at kernel init time and fed from the tick
// handler in sched; it is safe for concurrent use since a tick can land
// on any CPU-equivalent scheduling point.
type Recorder struct {
	mu      sync.Mutex
	samples []Sample
}

// Global is the kernel-wide instance backing D_PROF reads.
var Global Recorder

// Record appends one tick sample. Called from the scheduler's tick path;
// must not block or allocate heavily since it runs with interrupts
// routed through the timer ISR.
func (r *Recorder) Record(pid int, frame string) {
	r.mu.Lock()
	r.samples = append(r.samples, Sample{Pid: pid, Frame: frame})
	r.mu.Unlock()
}

// Snapshot drains the accumulated samples and serializes them as a
// gzip-compressed pprof profile.
func (r *Recorder) Snapshot() ([]byte, error) {
	r.mu.Lock()
	samples := r.samples
	r.samples = nil
	r.mu.Unlock()

	funcs := map[string]*profile.Function{}
	locs := map[string]*profile.Location{}
	var nextID uint64 = 1

	p := &profile.Profile{
		SampleType: []*profile.ValueType{{Type: "samples", Unit: "count"}},
		PeriodType: &profile.ValueType{Type: "tick", Unit: "count"},
		Period:     1,
	}

	for _, s := range samples {
		fn, ok := funcs[s.Frame]
		if !ok {
			fn = &profile.Function{ID: nextID, Name: s.Frame, SystemName: s.Frame}
			nextID++
			funcs[s.Frame] = fn
			p.Function = append(p.Function, fn)
		}
		loc, ok := locs[s.Frame]
		if !ok {
			loc = &profile.Location{
				ID:   nextID,
				Line: []profile.Line{{Function: fn}},
			}
			nextID++
			locs[s.Frame] = loc
			p.Location = append(p.Location, loc)
		}
		p.Sample = append(p.Sample, &profile.Sample{
			Location: []*profile.Location{loc},
			Value:    []int64{1},
			Label:    map[string][]string{"pid": {itoa(s.Pid)}},
		})
	}

	var buf bytes.Buffer
	if err := p.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var b [20]byte
	i := len(b)
	for n > 0 {
		i--
		b[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		b[i] = '-'
	}
	return string(b[i:])
}
