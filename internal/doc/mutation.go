package doc

import "golang.org/x/net/html"

// MutationKind classifies a tree change the way a DOM observer does.
type MutationKind int

const (
	MutationChildList MutationKind = iota
	MutationAttributes
	MutationCharacterData
)

func (k MutationKind) String() string {
	switch k {
	case MutationChildList:
		return "childList"
	case MutationAttributes:
		return "attributes"
	case MutationCharacterData:
		return "characterData"
	default:
		return "unknown"
	}
}

// Origin tells whether the host content or tickermark itself made a change.
type Origin int

const (
	OriginHost Origin = iota
	OriginEngine
)

// Mutation is one structural or attribute change.
type Mutation struct {
	Kind    MutationKind
	Origin  Origin
	Target  *html.Node
	Added   []*html.Node
	Removed []*html.Node
	Attr    string // attributes only
}

// Subscribe returns a channel that receives mutations. bufSize controls the
// channel buffer; slow consumers have events dropped.
func (d *Document) Subscribe(bufSize int) (int, <-chan Mutation) {
	return d.SubscribeFunc(bufSize, nil)
}

// SubscribeFunc is Subscribe delivering only the mutations keep accepts.
// Rejected events never take buffer space, so a burst of them cannot crowd
// out the ones the subscriber cares about. A nil keep accepts everything.
func (d *Document) SubscribeFunc(bufSize int, keep func(Mutation) bool) (int, <-chan Mutation) {
	ch := make(chan Mutation, bufSize)
	d.subsMu.Lock()
	id := d.nextSubID
	d.nextSubID++
	d.subs[id] = subscriber{ch: ch, keep: keep}
	d.subsMu.Unlock()
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (d *Document) Unsubscribe(id int) {
	d.subsMu.Lock()
	if sub, ok := d.subs[id]; ok {
		delete(d.subs, id)
		close(sub.ch)
	}
	d.subsMu.Unlock()
}

// emit invalidates the cached layout and broadcasts m non-blocking.
func (d *Document) emit(m Mutation) {
	d.flowValid = false

	d.subsMu.Lock()
	defer d.subsMu.Unlock()
	for _, sub := range d.subs {
		if sub.keep != nil && !sub.keep(m) {
			continue
		}
		select {
		case sub.ch <- m:
		default:
			// Slow subscriber, drop event.
		}
	}
}
