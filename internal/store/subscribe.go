package store

// Subscription wakes a consumer when one of its slices changes.
// Notifications coalesce: several changes before the consumer reads produce one wake-up,
// after which the consumer reads the current value.
type Subscription struct {
	c      chan struct{}
	slices map[Slice]struct{}
	store  *Store
}

// Subscribe registers interest in the given slices. No slices means all of them.
func (s *Store) Subscribe(slices ...Slice) *Subscription {
	if len(slices) == 0 {
		slices = AllSlices
	}

	sub := &Subscription{
		c:      make(chan struct{}, 1),
		slices: make(map[Slice]struct{}, len(slices)),
		store:  s,
	}
	for _, sl := range slices {
		sub.slices[sl] = struct{}{}
	}

	s.mu.Lock()
	s.subs[sub] = struct{}{}
	s.mu.Unlock()

	return sub
}

// C returns the notification channel. It is closed by Unsubscribe.
func (sub *Subscription) C() <-chan struct{} {
	return sub.c
}

// Unsubscribe stops notifications and closes the channel. Safe to call more than once.
func (sub *Subscription) Unsubscribe() {
	sub.store.mu.Lock()
	defer sub.store.mu.Unlock()

	if _, ok := sub.store.subs[sub]; !ok {
		return
	}
	delete(sub.store.subs, sub)
	close(sub.c)
}

func (sub *Subscription) wants(changed []Slice) bool {
	for _, sl := range changed {
		if _, ok := sub.slices[sl]; ok {
			return true
		}
	}
	return false
}

// notify is called with the store write lock held.
func (sub *Subscription) notify() {
	select {
	case sub.c <- struct{}{}:
	default:
	}
}
