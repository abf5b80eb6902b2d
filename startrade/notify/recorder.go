package notify

import (
	"context"
	"fmt"
	"sync"
)

// Recorder is an in-memory Notifier for tests and dry runs. Every delivery
// gets a deterministic ref and is kept for inspection.
type Recorder struct {
	mu      sync.Mutex
	nextRef int
	Sent    []Delivery
	Updated map[Ref]Payload
}

type Delivery struct {
	UserID  string
	Ref     Ref
	Payload Payload
}

func NewRecorder() *Recorder {
	return &Recorder{Updated: make(map[Ref]Payload)}
}

func (r *Recorder) Notify(_ context.Context, userID string, p Payload) (Ref, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextRef++
	ref := Ref(fmt.Sprintf("msg-%d", r.nextRef))
	r.Sent = append(r.Sent, Delivery{UserID: userID, Ref: ref, Payload: p})
	return ref, nil
}

func (r *Recorder) Update(_ context.Context, ref Ref, p Payload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Updated[ref] = p
	return nil
}

// SentTo returns every delivery addressed to a user.
func (r *Recorder) SentTo(userID string) []Delivery {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Delivery
	for _, d := range r.Sent {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	return out
}
