package store

import (
	"encoding/base64"
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/imrishuroy/go-idempotent-todo/internal/apperrors"
)

// encodeCursor turns the last evaluated key into an opaque token. Every key
// attribute of the table and its indexes is a string.
func encodeCursor(lastKey Item) string {
	if len(lastKey) == 0 {
		return ""
	}
	m := make(map[string]string, len(lastKey))
	for name, av := range lastKey {
		if s, ok := av.(*types.AttributeValueMemberS); ok {
			m[name] = s.Value
		}
	}
	b, err := json.Marshal(m)
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

func decodeCursor(cursor string) (Item, error) {
	if cursor == "" {
		return nil, nil
	}
	b, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, apperrors.Validationf("cursor", "invalid pagination cursor")
	}
	var m map[string]string
	if err := json.Unmarshal(b, &m); err != nil || len(m) == 0 {
		return nil, apperrors.Validationf("cursor", "invalid pagination cursor")
	}
	key := make(Item, len(m))
	for name, v := range m {
		key[name] = &types.AttributeValueMemberS{Value: v}
	}
	return key, nil
}
