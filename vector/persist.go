// Copyright 2025 Corvus Authors
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


package vector

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/corvus-ai/corvus/core"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// Save writes the index to path atomically: the encoding goes to a temp
// file in the same directory which is then renamed over the target.
func (f *Flat) Save(path string) error {
	f.mu.RLock()
	buf := make([]byte, f.sizeLocked())
	f.marshalLocked(buf)
	f.mu.RUnlock()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(buf); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Load replaces the index contents from path.
func (f *Flat) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	dim, entries, err := unmarshalIndex(data)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrCorruptIndex, path, err)
	}

	byID := make(map[string]int, len(entries))
	for i, e := range entries {
		byID[e.id] = i
	}

	f.mu.Lock()
	f.dim = dim
	f.entries = entries
	f.byID = byID
	f.mu.Unlock()
	return nil
}

func (f *Flat) sizeLocked() int {
	size := varint.PositiveInt.Size(f.dim)
	size += varint.PositiveInt.Size(len(f.entries))
	for _, e := range f.entries {
		size += ord.String.Size(e.id)
		size += varint.Uint64.Size(uint64(e.ref.ChunkId))
		size += varint.Uint64.Size(uint64(e.ref.DocumentId))
		size += varint.PositiveInt.Size(e.ref.Index)
		size += varint.PositiveInt.Size(len(e.vec))
		for _, v := range e.vec {
			size += raw.Float32.Size(v)
		}
	}
	return size
}

func (f *Flat) marshalLocked(bs []byte) {
	n := varint.PositiveInt.Marshal(f.dim, bs)
	n += varint.PositiveInt.Marshal(len(f.entries), bs[n:])
	for _, e := range f.entries {
		n += ord.String.Marshal(e.id, bs[n:])
		n += varint.Uint64.Marshal(uint64(e.ref.ChunkId), bs[n:])
		n += varint.Uint64.Marshal(uint64(e.ref.DocumentId), bs[n:])
		n += varint.PositiveInt.Marshal(e.ref.Index, bs[n:])
		n += varint.PositiveInt.Marshal(len(e.vec), bs[n:])
		for _, v := range e.vec {
			n += raw.Float32.Marshal(v, bs[n:])
		}
	}
}

func unmarshalIndex(bs []byte) (int, []entry, error) {
	dim, n, err := varint.PositiveInt.Unmarshal(bs)
	if err != nil {
		return 0, nil, err
	}

	count, n1, err := varint.PositiveInt.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return 0, nil, err
	}

	// The count comes from an untrusted file; cap the initial capacity so a
	// corrupt header cannot force a huge allocation.
	entries := make([]entry, 0, min(count, 1024))
	for i := 0; i < count; i++ {
		var e entry

		e.id, n1, err = ord.String.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return 0, nil, err
		}

		chunkID, n1, err := varint.Uint64.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return 0, nil, err
		}
		e.ref.ChunkId = core.ID(chunkID)

		docID, n1, err := varint.Uint64.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return 0, nil, err
		}
		e.ref.DocumentId = core.ID(docID)

		e.ref.Index, n1, err = varint.PositiveInt.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return 0, nil, err
		}

		length, n1, err := varint.PositiveInt.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return 0, nil, err
		}

		e.vec = make([]float32, length)
		for j := 0; j < length; j++ {
			e.vec[j], n1, err = raw.Float32.Unmarshal(bs[n:])
			n += n1
			if err != nil {
				return 0, nil, err
			}
		}

		entries = append(entries, e)
	}
	return dim, entries, nil
}
