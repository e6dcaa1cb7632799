package host

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
)

// Session scopes a Host to a single pass. It is acquired with Open and must
// be released with Close; nothing is cached between passes.
type Session struct {
	Host Host
	Root Container

	closeOnce sync.Once
	closeErr  error
}

// Open acquires a host from o and resolves its root container. Any failure
// is reported as ErrUnavailable.
func Open(ctx context.Context, o Opener) (*Session, error) {
	if o == nil {
		return nil, fmt.Errorf("%w: no library configured", ErrUnavailable)
	}

	h, err := o.Open(ctx)
	if err != nil {
		return nil, wrapUnavailable(err)
	}
	if h == nil {
		return nil, fmt.Errorf("%w: opener returned no host", ErrUnavailable)
	}

	root, err := h.Root(ctx)
	if err != nil {
		closeHost(h)
		return nil, wrapUnavailable(err)
	}

	return &Session{Host: h, Root: root}, nil
}

// Close releases the host if it holds resources. Safe to call more than once.
func (s *Session) Close() error {
	if s == nil {
		return nil
	}
	s.closeOnce.Do(func() {
		s.closeErr = closeHost(s.Host)
	})
	return s.closeErr
}

func closeHost(h Host) error {
	if c, ok := h.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func wrapUnavailable(err error) error {
	if errors.Is(err, ErrUnavailable) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
