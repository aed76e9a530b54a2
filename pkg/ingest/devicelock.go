/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package ingest

import "sync"

// deviceLocks serializes requests per device id. Entries are dropped once
// nobody holds or waits for them.
type deviceLocks struct {
	mu    sync.Mutex
	locks map[string]*deviceLock
}

type deviceLock struct {
	mu   sync.Mutex
	refs int
}

func newDeviceLocks() *deviceLocks {
	return &deviceLocks{locks: make(map[string]*deviceLock)}
}

// Lock blocks until id is free and returns the matching unlock.
func (l *deviceLocks) Lock(id string) func() {
	l.mu.Lock()

	dl, ok := l.locks[id]
	if !ok {
		dl = &deviceLock{}
		l.locks[id] = dl
	}

	dl.refs++
	l.mu.Unlock()

	dl.mu.Lock()

	return func() {
		dl.mu.Unlock()

		l.mu.Lock()
		dl.refs--

		if dl.refs == 0 {
			delete(l.locks, id)
		}

		l.mu.Unlock()
	}
}

func (l *deviceLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.locks)
}
