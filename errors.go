// Copyright 2026 The axisdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package axisdb

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bpowers/axisdb/value"
)

// MaxValueSize is the largest text or bytes value, in bytes, that may be
// used as an identity, dimension name or attribute value.
const MaxValueSize = 10000

var (
	// ErrInvalidInput is returned before any mutation when an argument is
	// unusable: an invalid value, blank text, an oversized value or an
	// out-of-range position.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound means an identity, dimension or value an operation
	// requires is absent.
	ErrNotFound = errors.New("not found")
)

func checkValue(what string, v value.Value) error {
	switch v.Kind() {
	case value.KindInvalid:
		return fmt.Errorf("%w: %s is missing", ErrInvalidInput, what)
	case value.KindText:
		if strings.TrimSpace(v.RawString()) == "" {
			return fmt.Errorf("%w: %s is blank", ErrInvalidInput, what)
		}
	}
	if n := v.Len(); n > MaxValueSize {
		return fmt.Errorf("%w: %s is %d bytes (max %d)", ErrInvalidInput, what, n, MaxValueSize)
	}
	return nil
}

func checkDimension(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: dimension name is blank", ErrInvalidInput)
	}
	if len(name) > MaxValueSize {
		return fmt.Errorf("%w: dimension name is %d bytes (max %d)", ErrInvalidInput, len(name), MaxValueSize)
	}
	return nil
}

func checkAttributes(attrs Attributes) error {
	for name, v := range attrs {
		if err := checkDimension(name); err != nil {
			return err
		}
		if err := checkValue(fmt.Sprintf("value of %q", name), v); err != nil {
			return err
		}
	}
	return nil
}
