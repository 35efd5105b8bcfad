package rest

import (
	"context"
	"iter"
	"net/url"

	"github.com/coachpo/starkbank/internal/checks"
	"github.com/coachpo/starkbank/pkg/resource"
)

// Stream lazily walks a list endpoint one page at a time. It holds at most
// one page and requests the next only once the buffer is drained. A Stream
// is single-consumer.
type Stream[T resource.Identifiable] struct {
	ctx       context.Context
	client    *Client
	d         resource.Descriptor[T]
	query     url.Values
	remaining *int
	cursor    string
	done      bool

	buf  []T
	next int
	cur  T
	err  error
}

// GetStream returns a stream over the entities matching q, stopping after
// limit entities when limit is set. No request is made until Next.
func GetStream[T resource.Identifiable](ctx context.Context, c *Client, d resource.Descriptor[T], limit *int, q url.Values) *Stream[T] {
	s := &Stream[T]{ctx: ctx, d: d, query: q}
	bounded, err := checks.Limit(limit)
	if err != nil {
		s.err = err
		return s
	}
	if bounded != nil {
		remaining := *bounded
		s.remaining = &remaining
	}
	client, err := resolve(c)
	if err != nil {
		s.err = err
		return s
	}
	s.client = client
	return s
}

// FailedStream returns a stream that yields nothing and reports err, for
// filters rejected before any request.
func FailedStream[T resource.Identifiable](err error) *Stream[T] {
	return &Stream[T]{err: err}
}

// Next advances to the next entity, fetching a page when needed. It returns
// false at the end of the results or on the first failure; see Err.
func (s *Stream[T]) Next() bool {
	for {
		if s.err != nil {
			return false
		}
		if s.next < len(s.buf) {
			s.cur = s.buf[s.next]
			s.next++
			return true
		}
		if s.done {
			return false
		}
		s.fetch()
	}
}

func (s *Stream[T]) fetch() {
	size := checks.MaxPageSize
	if s.remaining != nil {
		if *s.remaining <= 0 {
			s.done = true
			return
		}
		size = min(*s.remaining, checks.MaxPageSize)
	}
	items, cursor, err := fetchPage(s.ctx, s.client, s.d, s.cursor, size, s.query)
	if err != nil {
		s.err = err
		s.done = true
		return
	}
	if len(items) > size {
		items = items[:size]
	}
	s.buf = items
	s.next = 0
	s.cursor = cursor
	if s.remaining != nil {
		*s.remaining -= len(items)
	}
	// A short page with a cursor still counts only what it delivered; an
	// empty page ends the walk whatever cursor it carries.
	if cursor == "" || len(items) == 0 || (s.remaining != nil && *s.remaining <= 0) {
		s.done = true
	}
}

// Item returns the entity Next advanced to.
func (s *Stream[T]) Item() T { return s.cur }

// Err returns the failure that stopped the stream, if any. Entities yielded
// before the failure remain valid.
func (s *Stream[T]) Err() error { return s.err }

// All adapts the stream to a range-over-func sequence. A failure is yielded
// once, with the zero entity, as the final pair.
func (s *Stream[T]) All() iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for s.Next() {
			if !yield(s.cur, nil) {
				return
			}
		}
		if err := s.Err(); err != nil {
			var zero T
			yield(zero, err)
		}
	}
}

// Collect drains the stream into a slice.
func (s *Stream[T]) Collect() ([]T, error) {
	var out []T
	for s.Next() {
		out = append(out, s.cur)
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
