// Package animals holds the record-level rules applied between fetching an
// animal's detail and sending it home.
package animals

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Sternrassler/animals-client/pkg/client"
)

// ErrMissingID is returned when a listed record has no usable id.
var ErrMissingID = errors.New("record has no id")

// Field names used by the Animals API.
const (
	FieldID      = "id"
	FieldFriends = "friends"
)

// ID extracts the identifier of a record as a string.
func ID(item client.Item) (string, error) {
	switch v := item[FieldID].(type) {
	case json.Number:
		return v.String(), nil
	case string:
		if v == "" {
			return "", ErrMissingID
		}
		return v, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case nil:
		return "", ErrMissingID
	default:
		return "", fmt.Errorf("%w: unsupported id type %T", ErrMissingID, v)
	}
}

// Transform returns a copy of item with its comma-separated friends string
// turned into a list. An empty string becomes an empty list rather than the
// single empty name a plain split would give ([""]). Records whose
// friends field is absent or already a list are copied unchanged.
func Transform(item client.Item) client.Item {
	out := make(client.Item, len(item))
	for k, v := range item {
		out[k] = v
	}

	friends, ok := item[FieldFriends].(string)
	if !ok {
		return out
	}
	if friends == "" {
		out[FieldFriends] = []string{}
		return out
	}
	out[FieldFriends] = strings.Split(friends, ",")
	return out
}
