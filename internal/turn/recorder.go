package turn

import (
	"context"
	"sync"

	"github.com/h1v3-io/botsamples/pkg/schema"
)

// Recorder is a Sender that keeps every activity it is given.
// The adapter uses it for expectReplies delivery; tests use it to inspect replies.
type Recorder struct {
	mu         sync.Mutex
	activities []*schema.Activity
}

func (r *Recorder) Send(_ context.Context, a *schema.Activity) error {
	r.mu.Lock()
	r.activities = append(r.activities, a)
	r.mu.Unlock()
	return nil
}

// Activities returns a copy of the recorded activities in send order.
func (r *Recorder) Activities() []*schema.Activity {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*schema.Activity, len(r.activities))
	copy(out, r.activities)
	return out
}

// Len returns the number of recorded activities.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.activities)
}
