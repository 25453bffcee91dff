package store

import (
	"strings"
	stdsync "sync"

	"github.com/dmitrijs2005/annosync/internal/client/models"
	"github.com/dmitrijs2005/annosync/internal/common"
)

type subscription struct {
	prefix string
	fn     func(models.ChangeSet)

	mu    stdsync.Mutex
	queue []models.ChangeSet

	wake chan struct{}
	quit chan struct{}
}

func newSubscription(prefix string, fn func(models.ChangeSet)) *subscription {
	return &subscription{
		prefix: prefix,
		fn:     fn,
		wake:   make(chan struct{}, 1),
		quit:   make(chan struct{}),
	}
}

func (s *subscription) push(cs models.ChangeSet) {
	s.mu.Lock()
	s.queue = append(s.queue, cs)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscription) next() (models.ChangeSet, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queue) == 0 {
		return models.ChangeSet{}, false
	}
	cs := s.queue[0]
	s.queue = s.queue[1:]
	return cs, true
}

func (s *subscription) run() {
	for {
		select {
		case <-s.quit:
			return
		case <-s.wake:
		}

		for {
			cs, ok := s.next()
			if !ok {
				break
			}
			s.fn(cs)
		}
	}
}

// filter keeps the annotations whose key falls under the subscription prefix.
func (s *subscription) filter(cs models.ChangeSet) models.ChangeSet {
	var out models.ChangeSet
	for _, a := range cs.Changed {
		if strings.HasPrefix(common.AnnotationsPrefix+a.ID, s.prefix) {
			out.Changed = append(out.Changed, a)
		}
	}
	for _, a := range cs.Removed {
		if strings.HasPrefix(common.AnnotationsPrefix+a.ID, s.prefix) {
			out.Removed = append(out.Removed, a)
		}
	}
	return out
}

// Watch registers fn for change sets touching keys under prefix and returns
// a function that cancels the subscription. Calling it more than once is safe.
// Change sets already queued when the subscription is cancelled are dropped.
func (st *Store) Watch(prefix string, fn func(models.ChangeSet)) func() {
	sub := newSubscription(prefix, fn)

	st.subsMu.Lock()
	id := st.nextSubID
	st.nextSubID++
	st.subs[id] = sub
	st.subsMu.Unlock()

	go sub.run()

	return func() {
		st.subsMu.Lock()
		defer st.subsMu.Unlock()

		if _, ok := st.subs[id]; ok {
			delete(st.subs, id)
			close(sub.quit)
		}
	}
}

func (st *Store) publish(cs models.ChangeSet) {
	if cs.Empty() {
		return
	}

	st.subsMu.Lock()
	defer st.subsMu.Unlock()

	for _, sub := range st.subs {
		if filtered := sub.filter(cs); !filtered.Empty() {
			sub.push(filtered)
		}
	}
}

// Close cancels every subscription.
func (st *Store) Close() {
	st.subsMu.Lock()
	defer st.subsMu.Unlock()

	for id, sub := range st.subs {
		delete(st.subs, id)
		close(sub.quit)
	}
}
