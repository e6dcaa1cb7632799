// Package index locates media items in a host's container tree by
// filename.
//
// Traversal is pre-order by container: every item of a container in the
// order the host lists them, then each subcontainer in listed order. The
// first item whose File Name or Clip Name matches wins.
package index

import (
	"context"

	"github.com/JonMunkholm/metasync/internal/host"
)

// candidateProps are the item properties compared against a row key.
var candidateProps = []string{host.PropFileName, host.PropClipName}

// FindByName walks the tree under root and returns the first item matching
// name. A missing item is reported as ok == false with a nil error. Listing
// and property errors are treated as empty results; only context
// cancellation is returned.
func FindByName(ctx context.Context, h host.Host, root host.Container, name string) (host.Item, bool, error) {
	target := Normalize(name)
	if target == "" {
		return host.Item{}, false, nil
	}

	var found host.Item
	hit := false
	err := walk(ctx, h, root, func(it host.Item, names []string) bool {
		for _, n := range names {
			if Matches(n, target) {
				found, hit = it, true
				return false
			}
		}
		return true
	})
	if err != nil {
		return host.Item{}, false, err
	}
	return found, hit, nil
}

// Walker adapts a host session to the Finder used by the reconciler. Each
// lookup walks the tree afresh.
type Walker struct {
	Host host.Host
	Root host.Container
}

// Find implements reconcile.Finder.
func (w Walker) Find(ctx context.Context, name string) (host.Item, bool, error) {
	return FindByName(ctx, w.Host, w.Root, name)
}

// visitFunc receives an item with its normalized candidate names and
// returns false to stop the walk.
type visitFunc func(it host.Item, names []string) bool

func walk(ctx context.Context, h host.Host, root host.Container, visit visitFunc) error {
	seen := make(map[string]struct{})
	_, err := walkContainer(ctx, h, root, seen, visit)
	return err
}

func walkContainer(ctx context.Context, h host.Host, c host.Container, seen map[string]struct{}, visit visitFunc) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if _, dup := seen[c.ID]; dup {
		return true, nil
	}
	seen[c.ID] = struct{}{}

	items, err := h.ListChildItems(ctx, c)
	if err != nil && ctx.Err() != nil {
		return false, ctx.Err()
	}
	for _, it := range items {
		if !visit(it, candidateNames(ctx, h, it)) {
			return false, nil
		}
		if err := ctx.Err(); err != nil {
			return false, err
		}
	}

	subs, err := h.ListSubcontainers(ctx, c)
	if err != nil && ctx.Err() != nil {
		return false, ctx.Err()
	}
	for _, sub := range subs {
		more, err := walkContainer(ctx, h, sub, seen, visit)
		if err != nil || !more {
			return more, err
		}
	}
	return true, nil
}

func candidateNames(ctx context.Context, h host.Host, it host.Item) []string {
	names := make([]string, 0, len(candidateProps))
	for _, prop := range candidateProps {
		v, err := h.GetProperty(ctx, it, prop)
		if err != nil {
			continue
		}
		if n := Normalize(v); n != "" {
			names = append(names, n)
		}
	}
	return names
}
