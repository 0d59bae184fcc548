package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Arg is one formatted event argument.
type Arg struct {
	Key   string
	Value string
}

// Args keeps formatted arguments in ABI-declared order and encodes as a
// JSON object in that order.
type Args []Arg

// Get returns the value stored under key.
func (a Args) Get(key string) (string, bool) {
	for _, arg := range a {
		if arg.Key == key {
			return arg.Value, true
		}
	}
	return "", false
}

// Keys returns the argument names in order.
func (a Args) Keys() []string {
	keys := make([]string, 0, len(a))
	for _, arg := range a {
		keys = append(keys, arg.Key)
	}
	return keys
}

// MarshalJSON writes the arguments as an object, preserving order.
func (a Args) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, arg := range a {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(arg.Key)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(arg.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object of string values, keeping document order.
func (a *Args) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*a = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("args: expected object")
	}

	out := Args{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("args: invalid key %v", keyTok)
		}
		var value string
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("args: value for %s: %w", key, err)
		}
		out = append(out, Arg{Key: key, Value: value})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*a = out
	return nil
}

// DecodedEvent is a receipt log resolved to a protocol event.
type DecodedEvent struct {
	Contract ContractName `json:"contract"`
	Event    string       `json:"event"`
	Args     Args         `json:"args"`
	IsHero   bool         `json:"isHero"`
}
