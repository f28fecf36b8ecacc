package span

import "iter"

// Sequence is a lazy, finite, restartable sequence over a View. Elements are
// computed when they are asked for and never cached, so observing the first
// k elements of a span costs O(k) however long the span is.
type Sequence struct {
	view *View
	at   func(int) (ElementRef, error)
}

func NewSequence(v *View) *Sequence {
	return &Sequence{view: v, at: v.At}
}

func (s *Sequence) View() *View {
	return s.view
}

func (s *Sequence) Len() uint64 {
	return s.view.Len()
}

// ElementAt forwards to View.At.
func (s *Sequence) ElementAt(i int) (ElementRef, error) {
	return s.at(i)
}

// All yields (index, element) pairs in ascending order. Every call of the
// returned function starts a fresh enumeration from index 0.
func (s *Sequence) All() iter.Seq2[int, ElementRef] {
	return s.Window(0, -1)
}

// Window yields up to count elements starting at start, clamped to the
// span. A negative count means through the end.
func (s *Sequence) Window(start, count int) iter.Seq2[int, ElementRef] {
	return func(yield func(int, ElementRef) bool) {
		first := max(start, 0)
		for i, n := first, 0; count < 0 || n < count; i, n = i+1, n+1 {
			if uint64(i) >= s.view.Len() {
				return
			}
			ref, err := s.at(i)
			if err != nil || !yield(i, ref) {
				return
			}
		}
	}
}

// WindowChecked is Window that rejects a start outside [0, Len].
func (s *Sequence) WindowChecked(start, count int) (iter.Seq2[int, ElementRef], error) {
	if start < 0 || uint64(start) > s.view.Len() {
		return nil, &RangeError{Index: start, Length: s.view.Len()}
	}
	return s.Window(start, count), nil
}

// Collect materialises at most limit leading elements. A negative limit
// collects everything.
func (s *Sequence) Collect(limit int) []ElementRef {
	var refs []ElementRef
	for _, ref := range s.Window(0, limit) {
		refs = append(refs, ref)
	}
	return refs
}
