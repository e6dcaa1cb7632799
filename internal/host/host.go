// Package host defines the capability surface the reconciler needs from a
// media library: list a container's items and subcontainers, read item
// properties, and write metadata. Backends live in subpackages.
package host

import (
	"context"
	"errors"
)

// Property names every backend answers for items.
const (
	PropFileName = "File Name"
	PropClipName = "Clip Name"
)

// ErrUnavailable is returned when the library cannot be reached or has no
// open media pool. It is fatal to a pass.
var ErrUnavailable = errors.New("host unavailable")

// Container is a host-owned handle for a folder in the library tree.
type Container struct {
	ID   string
	Name string
}

// Item is a host-owned handle for a media item. Properties are read through
// Host.GetProperty, not cached here.
type Item struct {
	ID   string
	Name string
}

// Host is the capability interface over a media library.
//
// Nil or empty list results are valid. SetMetadata returns false with a nil
// error when the host declined the value.
type Host interface {
	Root(ctx context.Context) (Container, error)
	ListChildItems(ctx context.Context, c Container) ([]Item, error)
	ListSubcontainers(ctx context.Context, c Container) ([]Container, error)
	GetProperty(ctx context.Context, it Item, key string) (string, error)
	SetMetadata(ctx context.Context, it Item, key, value string) (bool, error)
}

// Opener acquires a Host for the duration of one pass.
type Opener interface {
	Open(ctx context.Context) (Host, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(ctx context.Context) (Host, error)

func (f OpenerFunc) Open(ctx context.Context) (Host, error) { return f(ctx) }

// Static returns an Opener that always hands out h.
func Static(h Host) Opener {
	return OpenerFunc(func(context.Context) (Host, error) { return h, nil })
}
