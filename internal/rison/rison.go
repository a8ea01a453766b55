// Package rison encodes values in Rison, the URI-friendly JSON dialect the
// Superset REST API expects in its q parameter.
package rison

import (
	"fmt"

	gorison "github.com/sakura-internet/go-rison/v4"
)

// Encode returns the Rison text of v. v goes through encoding/json first,
// so struct tags apply.
func Encode(v interface{}) (string, error) {
	b, err := gorison.Marshal(v, gorison.Rison)
	if err != nil {
		return "", fmt.Errorf("rison: %w", err)
	}
	return string(b), nil
}

// MustEncode is Encode for values known to be encodable.
func MustEncode(v interface{}) string {
	s, err := Encode(v)
	if err != nil {
		panic(err)
	}
	return s
}

// Decode parses Rison text into v, which is filled as by encoding/json.
func Decode(s string, v interface{}) error {
	if err := gorison.Unmarshal([]byte(s), v, gorison.Rison); err != nil {
		return fmt.Errorf("rison: %w", err)
	}
	return nil
}
