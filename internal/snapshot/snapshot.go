// Package snapshot creates immutable deep copies at API boundaries. The
// catalog and the wiring registry hand out snapshots so callers can never
// mutate shared state through a returned template or override set.
package snapshot

import (
	"github.com/pkg/errors"
	"github.com/tiendc/go-deepcopy"
)

// Copy creates a deep copy of src using reflection. Slices, maps, and nested
// pointers are recursively copied. A nil src returns (nil, nil).
func Copy[T any](src *T) (*T, error) {
	if src == nil {
		return nil, nil
	}

	var dst T
	err := deepcopy.Copy(&dst, &src)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to deep copy type %T", src)
	}
	return &dst, nil
}

// MustCopy creates a deep copy of src and panics if the operation fails.
// Intended for constructor boundaries where the structures involved are
// always copyable and a failure indicates a programming error:
//
//	func (c *Catalog) Template(id string) *Template {
//	    return snapshot.MustCopy(c.templates[id])
//	}
//
// A nil src returns nil without panicking.
func MustCopy[T any](src *T) *T {
	if src == nil {
		return nil
	}
	result, err := Copy(src)
	if err != nil {
		panic("failed to create immutable snapshot: " + err.Error())
	}
	return result
}
