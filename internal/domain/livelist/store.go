package livelist

import "sync"

// ListStore holds the currently materialized page of entities plus
// pagination metadata. Both the REST fetch path and the push-event
// path mutate the visible list through these primitives, so there is
// exactly one implementation of "apply a change to the list".
//
// All operations are total functions over the current snapshot: no
// internal error states. ReplaceByID on an absent id is a documented
// no-op (the entity may live on a page that is not materialized).
type ListStore[E Entity] struct {
	mu       sync.RWMutex
	items    []E
	page     int
	pageSize int
	total    int
}

// NewListStore creates an empty store bounded to pageSize items
func NewListStore[E Entity](pageSize int) *ListStore[E] {
	if pageSize <= 0 {
		pageSize = 10
	}
	return &ListStore[E]{pageSize: pageSize}
}

// Load replaces the current state wholesale after a full fetch
func (s *ListStore[E]) Load(page ListPage[E]) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = make([]E, len(page.Items))
	copy(s.items, page.Items)
	if len(s.items) > s.pageSize {
		s.items = s.items[:s.pageSize]
	}
	s.page = page.Pagination.Page
	s.total = page.Pagination.Total
}

// InsertAtHead prepends the entity and increments total. When the
// resulting length exceeds the page size the last item is dropped
// rather than triggering a refetch: the list mirrors "page 1 of a
// live feed", showing the freshest N. This is deliberate behavior,
// not a bug to fix.
func (s *ListStore[E]) InsertAtHead(e E) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = append([]E{e}, s.items...)
	if len(s.items) > s.pageSize {
		s.items = s.items[:s.pageSize]
	}
	s.total++
}

// ReplaceByID replaces the entity in place, preserving its position so
// the UI stays stable. Returns false when the id is not materialized;
// that is an accepted no-op, not an error. Applying the same
// replacement twice is a no-op change-in-place, which is what makes
// the local-success and push-echo paths safe to overlap.
func (s *ListStore[E]) ReplaceByID(id string, e E) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].EntityID() == id {
			s.items[i] = e
			return true
		}
	}
	return false
}

// RemoveByID removes the entity and decrements total, floored at 0.
// An absent id leaves items untouched and does not decrement.
func (s *ListStore[E]) RemoveByID(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].EntityID() == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			if s.total > 0 {
				s.total--
			}
			return true
		}
	}
	return false
}

// Snapshot returns a copy of the current page for rendering
func (s *ListStore[E]) Snapshot() ListPage[E] {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]E, len(s.items))
	copy(items, s.items)
	return ListPage[E]{
		Items: items,
		Pagination: Pagination{
			Page:  s.page,
			Pages: pages(s.total, s.pageSize),
			Total: s.total,
		},
	}
}

// Len returns the number of materialized items
func (s *ListStore[E]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Total returns the server-side collection count as last known
func (s *ListStore[E]) Total() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.total
}

// PageSize returns the bound on materialized items
func (s *ListStore[E]) PageSize() int {
	return s.pageSize
}

func pages(total, pageSize int) int {
	if total == 0 {
		return 0
	}
	p := total / pageSize
	if total%pageSize > 0 {
		p++
	}
	return p
}
