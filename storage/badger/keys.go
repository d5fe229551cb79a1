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

package badger

import "github.com/poiesic/skillmatch/storage"

const cacheEntryPrefix = "cache"

// makeTierPrefix generates the key prefix shared by every entry of a tier.
// Format: cache:tier:
func makeTierPrefix(tier storage.Tier) []byte {
	return []byte(cacheEntryPrefix + ":" + string(tier) + ":")
}

// makeEntryKey generates the key for one cache entry.
// Format: cache:tier:key
func makeEntryKey(tier storage.Tier, key string) []byte {
	prefix := makeTierPrefix(tier)
	buf := make([]byte, 0, len(prefix)+len(key))
	buf = append(buf, prefix...)
	return append(buf, key...)
}
