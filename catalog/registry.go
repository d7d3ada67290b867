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

package catalog

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/remactgo/remact/actor"
	"github.com/remactgo/remact/internal/xsync"
)

// entry is a registered service and the time it is forgotten at
type entry struct {
	info    *actor.ActorInfo
	expires time.Time
}

// registry holds the services announced to the catalog. An entry lives for
// three times the timeout of its service unless announced again.
type registry struct {
	entries *xsync.Map[string, *entry]
}

func newRegistry() *registry {
	return &registry{entries: xsync.NewMap[string, *entry]()}
}

func key(name string) string {
	return strings.ToLower(name)
}

// ttl returns how long an announcement of info stays valid
func ttl(info *actor.ActorInfo) time.Duration {
	timeout := info.Timeout()
	if timeout <= 0 {
		timeout = actor.DefaultTimeout
	}
	return 3 * timeout
}

// enable registers info, replacing any entry of the same name
func (r *registry) enable(info *actor.ActorInfo, now time.Time) *actor.ActorInfo {
	stored := info.WithUsage(actor.UsageUndefined)
	r.entries.Set(key(info.Name), &entry{info: stored, expires: now.Add(ttl(info))})
	return stored.Clone()
}

// disable removes the entry of info when it still belongs to the same port
func (r *registry) disable(info *actor.ActorInfo) bool {
	k := key(info.Name)
	current, ok := r.entries.Get(k)
	if !ok || !current.info.SameIdentity(info) {
		return false
	}
	r.entries.Delete(k)
	return true
}

// lookup returns the live entry registered under name
func (r *registry) lookup(name string, now time.Time) (*actor.ActorInfo, bool) {
	k := key(name)
	current, ok := r.entries.Get(k)
	if !ok {
		return nil, false
	}
	if now.After(current.expires) {
		r.entries.Delete(k)
		return nil, false
	}
	return current.info.Clone(), true
}

// sweep forgets the expired entries and returns how many were removed
func (r *registry) sweep(now time.Time) int {
	var expired []string
	r.entries.Range(func(k string, current *entry) {
		if now.After(current.expires) {
			expired = append(expired, k)
		}
	})
	for _, k := range expired {
		r.entries.Delete(k)
	}
	return len(expired)
}

// list returns the registered services sorted by name
func (r *registry) list() []*actor.ActorInfo {
	infos := make([]*actor.ActorInfo, 0, r.entries.Len())
	for _, current := range r.entries.Values() {
		infos = append(infos, current.info.Clone())
	}
	slices.SortFunc(infos, func(a, b *actor.ActorInfo) int {
		return cmp.Compare(key(a.Name), key(b.Name))
	})
	return infos
}
