/*
Copyright 2023 The Lakegate Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package striped provides a fixed pool of mutexes shared across string
// keys by hashing. Two distinct keys may map to the same mutex; callers
// must treat that as extra serialization, never as a correctness signal.
package striped

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

// DefaultStripes is the pool size used by New when given a non-positive
// stripe count.
const DefaultStripes = 64

// Locks is a striped mutex pool. The zero value is not usable; use New.
type Locks struct {
	stripes []sync.Mutex
}

// New returns a pool with n stripes, rounded up to the next power of two
// so the stripe index reduces to a mask.
func New(n int) *Locks {
	if n <= 0 {
		n = DefaultStripes
	}
	size := 1
	for size < n {
		size <<= 1
	}
	return &Locks{stripes: make([]sync.Mutex, size)}
}

// WithLock runs action while holding the stripe for key. The lock is
// released on every exit path, including a panic inside action.
func (l *Locks) WithLock(key string, action func() error) error {
	mu := l.stripeFor(key)
	mu.Lock()
	defer mu.Unlock()
	return action()
}

func (l *Locks) stripeFor(key string) *sync.Mutex {
	idx := xxhash.Sum64String(key) & uint64(len(l.stripes)-1)
	return &l.stripes[idx]
}
