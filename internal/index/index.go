package index

import (
	"context"

	"github.com/JonMunkholm/metasync/internal/host"
)

// Index is a prebuilt name lookup over one walk of the tree. It answers
// with the same matching rules and first-visited-wins order as FindByName.
type Index struct {
	byName map[string]entry
	byStem map[string]entry
	items  int
}

type entry struct {
	item host.Item
	seq  int
}

// Build walks the tree under root once.
func Build(ctx context.Context, h host.Host, root host.Container) (*Index, error) {
	idx := &Index{
		byName: make(map[string]entry),
		byStem: make(map[string]entry),
	}
	err := walk(ctx, h, root, func(it host.Item, names []string) bool {
		seq := idx.items
		idx.items++
		for _, n := range names {
			if _, ok := idx.byName[n]; !ok {
				idx.byName[n] = entry{item: it, seq: seq}
			}
			if stem := StripExtension(n); stem != "" {
				if _, ok := idx.byStem[stem]; !ok {
					idx.byStem[stem] = entry{item: it, seq: seq}
				}
			}
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return idx, nil
}

// Len returns the number of items visited while building.
func (x *Index) Len() int { return x.items }

// Find implements reconcile.Finder.
func (x *Index) Find(ctx context.Context, name string) (host.Item, bool, error) {
	target := Normalize(name)
	if target == "" {
		return host.Item{}, false, nil
	}

	best, ok := x.byName[target]
	if stem := StripExtension(target); stem != "" {
		if e, hit := x.byStem[stem]; hit && (!ok || e.seq < best.seq) {
			best, ok = e, true
		}
	}
	if !ok {
		return host.Item{}, false, nil
	}
	return best.item, true, nil
}
