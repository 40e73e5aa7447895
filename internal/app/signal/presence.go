package signal

import "sort"

// presenceSet is the set of identity ids with an open channel. It is owned
// by the hub and only touched on the event loop, so every snapshot is
// consistent at emit time.
type presenceSet map[string]struct{}

// add registers an id and reports whether the set changed.
func (p presenceSet) add(id string) bool {
	if _, ok := p[id]; ok {
		return false
	}
	p[id] = struct{}{}
	return true
}

// remove deregisters an id and reports whether the set changed.
func (p presenceSet) remove(id string) bool {
	if _, ok := p[id]; !ok {
		return false
	}
	delete(p, id)
	return true
}

func (p presenceSet) contains(id string) bool {
	_, ok := p[id]
	return ok
}

// snapshot returns the current ids in stable order for broadcasting.
func (p presenceSet) snapshot() []string {
	ids := make([]string, 0, len(p))
	for id := range p {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
