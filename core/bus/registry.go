package bus

import (
	"sync"
)

// registry collects subscriptions until the bus is built.
// After build the subscription slice is read without locking.
type registry struct {
	mu    sync.Mutex
	subs  []*Subscription
	built bool
}

// add validates every subscription before adding any, so a rejected call
// leaves the registry unchanged.
func (r *registry) add(subs ...*Subscription) error {
	for _, s := range subs {
		if err := s.validate(); err != nil {
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.built {
		return ErrRegistryBuilt
	}
	r.subs = append(r.subs, subs...)
	return nil
}

// freeze returns the final registration-ordered subscription list.
func (r *registry) freeze() []*Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.built = true
	return r.subs
}

func (r *registry) isBuilt() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.built
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}
