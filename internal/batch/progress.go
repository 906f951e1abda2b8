package batch

import (
	"sync"
	"time"
)

// Observer is notified as a batch runs. End is always called once Begin has
// been, whatever the outcome.
type Observer interface {
	Begin(total int)
	Advance(name string, err error)
	End(err error)
}

type nopObserver struct{}

func (nopObserver) Begin(int)             {}
func (nopObserver) Advance(string, error) {}
func (nopObserver) End(error)             {}

// Status is a point-in-time view of a Tracker.
type Status struct {
	Busy       bool      `json:"busy"`
	Total      int       `json:"total"`
	Done       int       `json:"done"`
	Failed     int       `json:"failed"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at,omitempty"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

// Tracker is an Observer that keeps the latest batch status so a caller can
// show a "generating" state and disable its trigger while Busy.
type Tracker struct {
	mu  sync.Mutex
	st  Status
	now func() time.Time
}

func NewTracker() *Tracker {
	return &Tracker{now: time.Now}
}

func (t *Tracker) Begin(total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.st = Status{Busy: true, Total: total, StartedAt: t.now()}
}

func (t *Tracker) Advance(_ string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.st.Done++
	if err != nil {
		t.st.Failed++
	}
}

func (t *Tracker) End(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.st.Busy = false
	t.st.FinishedAt = t.now()
	if err != nil {
		t.st.Error = err.Error()
	}
}

func (t *Tracker) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.st
}

func (t *Tracker) Busy() bool {
	return t.Status().Busy
}
