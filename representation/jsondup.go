package representation

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

// ErrDuplicateKey is returned by strict JSON decoding when an object repeats
// a key.
var ErrDuplicateKey = errors.New("duplicate object key")

type dupFrame struct {
	object       bool
	keys         map[string]struct{}
	expectingKey bool
	lastKey      string
	index        int
	path         string // JSON Pointer of the container
}

// checkDuplicateKeys walks the token stream of b and reports the first
// repeated object key together with its JSON Pointer.
func checkDuplicateKeys(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var stack []*dupFrame

	// valueDone advances the enclosing container past one value.
	valueDone := func() {
		if n := len(stack); n > 0 {
			top := stack[n-1]
			if top.object {
				top.expectingKey = true
			} else {
				top.index++
			}
		}
	}
	childPath := func() string {
		n := len(stack)
		if n == 0 {
			return ""
		}
		top := stack[n-1]
		if top.object {
			return top.path + "/" + escapePointer(top.lastKey)
		}
		return top.path + "/" + strconv.Itoa(top.index)
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		switch v := tok.(type) {
		case json.Delim:
			switch v {
			case '{', '[':
				f := &dupFrame{object: v == '{', expectingKey: v == '{', path: childPath()}
				if f.object {
					f.keys = map[string]struct{}{}
				}
				stack = append(stack, f)
			case '}', ']':
				if len(stack) > 0 {
					stack = stack[:len(stack)-1]
				}
				valueDone()
			}
		case string:
			if n := len(stack); n > 0 && stack[n-1].object && stack[n-1].expectingKey {
				top := stack[n-1]
				if _, dup := top.keys[v]; dup {
					return fmt.Errorf("%w %q at %s", ErrDuplicateKey, v, top.path+"/"+escapePointer(v))
				}
				top.keys[v] = struct{}{}
				top.lastKey = v
				top.expectingKey = false
				continue
			}
			valueDone()
		default:
			valueDone()
		}
	}
}

func escapePointer(s string) string {
	if !strings.ContainsAny(s, "~/") {
		return s
	}
	return strings.NewReplacer("~", "~0", "/", "~1").Replace(s)
}
