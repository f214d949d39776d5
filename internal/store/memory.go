package store

import (
	"context"
	"sort"
	"sync"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
)

// Memory is an in-process Store for tests and local runs. Items never
// expire: nothing here depends on TTL timing.
type Memory struct {
	mu    sync.Mutex
	items map[Key]Item
}

func NewMemory() *Memory {
	return &Memory{items: make(map[Key]Item)}
}

func copyItem(it Item) Item {
	out := make(Item, len(it))
	for k, v := range it {
		out[k] = v
	}
	return out
}

func (m *Memory) GetItem(_ context.Context, key Key) (Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	it, ok := m.items[key]
	if !ok {
		return nil, ErrNotFound
	}
	return copyItem(it), nil
}

func (m *Memory) PutItem(_ context.Context, item Item, cond Condition) error {
	key := KeyOf(item)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.items[key]; exists && cond == IfNotExists {
		return ErrConditionFailed
	}
	m.items[key] = copyItem(item)
	return nil
}

func (m *Memory) UpdateItem(_ context.Context, key Key, set map[string]any, cond Condition) error {
	values := make(Item, len(set))
	for name, v := range set {
		av, err := attributevalue.Marshal(v)
		if err != nil {
			return err
		}
		values[name] = av
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	it, ok := m.items[key]
	switch {
	case !ok && cond == IfExists:
		return ErrConditionFailed
	case !ok:
		it = key.item()
	default:
		it = copyItem(it)
	}
	for name, av := range values {
		it[name] = av
	}
	m.items[key] = it
	return nil
}

func (m *Memory) DeleteItem(_ context.Context, key Key) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.items[key]
	delete(m.items, key)
	return ok, nil
}

func (m *Memory) Query(_ context.Context, q Query) (Page, error) {
	startKey, err := decodeCursor(q.Cursor)
	if err != nil {
		return Page{}, err
	}
	pkAttr, skAttr := q.Index.KeyAttrs()

	m.mu.Lock()
	var matched []Item
	for _, it := range m.items {
		if _, ok := it[pkAttr]; !ok {
			continue
		}
		if _, ok := it[skAttr]; !ok {
			continue
		}
		if StringAttr(it, pkAttr) != q.Partition || !q.Predicate.match(StringAttr(it, skAttr)) {
			continue
		}
		matched = append(matched, copyItem(it))
	}
	m.mu.Unlock()

	less := func(a, b Item) bool {
		if sa, sb := StringAttr(a, skAttr), StringAttr(b, skAttr); sa != sb {
			return sa < sb
		}
		ka, kb := KeyOf(a), KeyOf(b)
		if ka.PK != kb.PK {
			return ka.PK < kb.PK
		}
		return ka.SK < kb.SK
	}
	sort.Slice(matched, func(i, j int) bool { return less(matched[i], matched[j]) })

	start := 0
	if startKey != nil {
		start = sort.Search(len(matched), func(i int) bool { return less(startKey, matched[i]) })
	}
	end := len(matched)
	if q.Limit > 0 && start+int(q.Limit) < end {
		end = start + int(q.Limit)
	}

	page := Page{Items: matched[start:end]}
	if end < len(matched) && end > start {
		page.NextCursor = encodeCursor(lastKey(matched[end-1], pkAttr, skAttr))
	}
	return page, nil
}

// lastKey mirrors DynamoDB's LastEvaluatedKey: the table key plus the
// index key when querying an index.
func lastKey(it Item, pkAttr, skAttr string) Item {
	key := Item{AttrPK: it[AttrPK], AttrSK: it[AttrSK]}
	key[pkAttr] = it[pkAttr]
	key[skAttr] = it[skAttr]
	return key
}
