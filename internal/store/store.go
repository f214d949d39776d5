// Package store is the key-value access layer shared by every repository:
// one table with a composite (PK, SK) key, four secondary indexes and
// per-item TTL.
package store

import (
	"context"
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Physical attribute names.
const (
	AttrPK         = "PK"
	AttrSK         = "SK"
	AttrEntityType = "entity_type"
	AttrExpiresAt  = "expires_at"
)

// Key prefixes. Stream consumers parse these to classify changes, so they
// are part of the persisted format.
const (
	PrefixUser        = "USER#"
	PrefixTask        = "TASK#"
	PrefixIdempotency = "IDEMPOTENCY#"
	PrefixStatus      = "STATUS#"
	PrefixDueDate     = "DUEDATE#"
	PrefixPriority    = "PRIORITY#"
	PrefixCategory    = "CATEGORY#"

	// SortMetadata is the sort key of single-item partitions.
	SortMetadata = "METADATA"
)

// Entity types written to AttrEntityType.
const (
	EntityUser        = "USER"
	EntityTask        = "TASK"
	EntityIdempotency = "IDEMPOTENCY"
)

// EntityTypeOf classifies an item by its partition key. It returns "" for
// keys that belong to no known entity.
func EntityTypeOf(pk string) string {
	switch {
	case strings.HasPrefix(pk, PrefixUser):
		return EntityUser
	case strings.HasPrefix(pk, PrefixTask):
		return EntityTask
	case strings.HasPrefix(pk, PrefixIdempotency):
		return EntityIdempotency
	default:
		return ""
	}
}

var (
	// ErrNotFound is returned by GetItem when no item has the key.
	ErrNotFound = errors.New("store: item not found")
	// ErrConditionFailed is returned by a conditional PutItem whose
	// precondition did not hold. Callers must not retry it blindly.
	ErrConditionFailed = errors.New("store: condition failed")
)

// Item is one stored item in DynamoDB attribute form.
type Item = map[string]types.AttributeValue

// Key is the primary key of an item.
type Key struct {
	PK string
	SK string
}

func (k Key) item() Item {
	return Item{
		AttrPK: &types.AttributeValueMemberS{Value: k.PK},
		AttrSK: &types.AttributeValueMemberS{Value: k.SK},
	}
}

// KeyOf returns the primary key of an item.
func KeyOf(it Item) Key {
	return Key{PK: StringAttr(it, AttrPK), SK: StringAttr(it, AttrSK)}
}

// StringAttr returns the string value of a named attribute, or "".
func StringAttr(it Item, name string) string {
	if s, ok := it[name].(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

// Condition guards a PutItem or UpdateItem.
type Condition int

const (
	Unconditional Condition = iota
	// IfNotExists succeeds only when no item has the same primary key.
	IfNotExists
	// IfExists succeeds only when the item is already there.
	IfExists
)

// Index names a secondary index. The zero value is the base table.
type Index string

const (
	BaseTable Index = ""
	GSI1      Index = "GSI1" // status
	GSI2      Index = "GSI2" // due date
	GSI3      Index = "GSI3" // priority
	GSI4      Index = "GSI4" // category
)

// KeyAttrs returns the partition and sort key attribute names of the index.
func (i Index) KeyAttrs() (string, string) {
	if i == BaseTable {
		return AttrPK, AttrSK
	}
	return string(i) + "PK", string(i) + "SK"
}

type predicateOp int

const (
	opAny predicateOp = iota
	opBeginsWith
	opEquals
	opBetween
)

// Predicate restricts the sort key of a query. The zero value matches all.
type Predicate struct {
	op    predicateOp
	value string
	upper string
}

func BeginsWith(prefix string) Predicate { return Predicate{op: opBeginsWith, value: prefix} }
func Equals(v string) Predicate          { return Predicate{op: opEquals, value: v} }

// Between matches lo <= sk <= hi.
func Between(lo, hi string) Predicate { return Predicate{op: opBetween, value: lo, upper: hi} }

func (p Predicate) match(sk string) bool {
	switch p.op {
	case opBeginsWith:
		return strings.HasPrefix(sk, p.value)
	case opEquals:
		return sk == p.value
	case opBetween:
		return sk >= p.value && sk <= p.upper
	default:
		return true
	}
}

// Query selects items of one partition, in ascending sort key order.
type Query struct {
	Partition string
	Predicate Predicate
	Index     Index
	Limit     int32
	Cursor    string
}

// Page is one page of query results. An empty NextCursor means the query
// is exhausted; a non-empty one does not promise more items.
type Page struct {
	Items      []Item
	NextCursor string
}

// Store is the key-value contract repositories are written against.
type Store interface {
	GetItem(ctx context.Context, key Key) (Item, error)
	PutItem(ctx context.Context, item Item, cond Condition) error
	// UpdateItem sets the given attributes on the item. Unconditional
	// updates create the item when absent; IfExists returns
	// ErrConditionFailed instead. Values are plain Go values marshalled
	// with attributevalue.
	UpdateItem(ctx context.Context, key Key, set map[string]any, cond Condition) error
	// DeleteItem removes the item and reports whether it existed.
	DeleteItem(ctx context.Context, key Key) (bool, error)
	Query(ctx context.Context, q Query) (Page, error)
}
