// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cache layers typed values over a storage.Store.
//
// A Cache[T] pairs one tier's store with a Codec. The result tier uses
// NewResultCache, which stores []core.CandidateRecord as JSON. The index tier
// uses index.NewCache, which stores a serialized similarity index.
//
// Get is total: any entry that is missing, unreadable or undecodable is
// reported as a miss so that cache trouble never blocks a request. Put
// returns its error so callers can log and surface it, but a failed Put must
// not abort the computation that produced the value.
package cache
