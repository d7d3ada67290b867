// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package types

import (
	"reflect"
	"strings"
	"sync"
)

// Registry maps wire type names to Go types so that remote payloads of a
// known type can be decoded eagerly.
type Registry interface {
	// Register records the type of v. v is usually a pointer to a zero value.
	Register(v any)
	// Deregister removes the type of v from the registry
	Deregister(v any)
	// Exists return true when the type of v is in the registry
	Exists(v any) bool
	// TypeOf returns the type registered under the given wire name
	TypeOf(name string) (reflect.Type, bool)
	// Len returns the number of registered types
	Len() int
}

type registry struct {
	mu       sync.RWMutex
	typesMap map[string]reflect.Type
}

var _ Registry = (*registry)(nil)

// NewRegistry creates a new types registry
func NewRegistry() Registry {
	return &registry{
		typesMap: make(map[string]reflect.Type),
	}
}

// Register records the type of v
func (r *registry) Register(v any) {
	rtype := ElemType(v)
	if rtype == nil {
		return
	}
	r.mu.Lock()
	r.typesMap[nameOf(rtype)] = rtype
	r.mu.Unlock()
}

// Deregister removes the type of v from the registry
func (r *registry) Deregister(v any) {
	r.mu.Lock()
	delete(r.typesMap, Name(v))
	r.mu.Unlock()
}

// Exists return true when the type of v is in the registry
func (r *registry) Exists(v any) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.typesMap[Name(v)]
	return ok
}

// TypeOf returns the type registered under the given wire name
func (r *registry) TypeOf(name string) (reflect.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out, ok := r.typesMap[lowTrim(name)]
	return out, ok
}

// Len returns the number of registered types
func (r *registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.typesMap)
}

// ElemType returns the non-pointer type of v. v may be a reflect.Type.
func ElemType(v any) reflect.Type {
	var rtype reflect.Type
	switch x := v.(type) {
	case nil:
		return nil
	case reflect.Type:
		rtype = x
	default:
		rtype = reflect.TypeOf(v)
	}

	for rtype.Kind() == reflect.Pointer {
		rtype = rtype.Elem()
	}
	return rtype
}

// Name returns the wire name of the type of v: the lowercased, package
// qualified type name, pointers stripped. nil yields an empty name.
func Name(v any) string {
	rtype := ElemType(v)
	if rtype == nil {
		return ""
	}
	return nameOf(rtype)
}

// ShortName returns the wire name without its package qualifier.
func ShortName(name string) string {
	name = lowTrim(name)
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}

// SameShortName reports whether two wire names denote the same type name
// regardless of the package that declared them. Peers built from different
// binaries usually declare their shared payloads in different packages.
func SameShortName(a, b string) bool {
	return ShortName(a) == ShortName(b)
}

func nameOf(rtype reflect.Type) string {
	return lowTrim(rtype.String())
}

// lowTrim trim any space and lower the string value
func lowTrim(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
