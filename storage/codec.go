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

package storage

import (
	"fmt"
	"math"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// writer runs an encode function twice: once to size the buffer, once to fill it.
type writer struct {
	buf    []byte
	n      int
	sizing bool
}

func encode(fn func(w *writer)) []byte {
	w := &writer{sizing: true}
	fn(w)
	w.buf = make([]byte, w.n)
	w.n = 0
	w.sizing = false
	fn(w)
	return w.buf
}

func (w *writer) str(v string) {
	if w.sizing {
		w.n += ord.String.Size(v)
		return
	}
	w.n += ord.String.Marshal(v, w.buf[w.n:])
}

func (w *writer) bool(v bool) {
	if w.sizing {
		w.n += ord.Bool.Size(v)
		return
	}
	w.n += ord.Bool.Marshal(v, w.buf[w.n:])
}

func (w *writer) int64(v int64) {
	if w.sizing {
		w.n += varint.Int64.Size(v)
		return
	}
	w.n += varint.Int64.Marshal(v, w.buf[w.n:])
}

func (w *writer) int(v int) {
	w.int64(int64(v))
}

func (w *writer) count(v int) {
	if w.sizing {
		w.n += varint.PositiveInt.Size(v)
		return
	}
	w.n += varint.PositiveInt.Marshal(v, w.buf[w.n:])
}

func (w *writer) float64(v float64) {
	bits := math.Float64bits(v)
	if w.sizing {
		w.n += varint.Uint64.Size(bits)
		return
	}
	w.n += varint.Uint64.Marshal(bits, w.buf[w.n:])
}

// time stores microseconds since the epoch; the zero time is stored as absent.
func (w *writer) time(v time.Time) {
	w.bool(!v.IsZero())
	if !v.IsZero() {
		w.int64(v.UnixMicro())
	}
}

func (w *writer) timePtr(v *time.Time) {
	if v == nil {
		w.time(time.Time{})
		return
	}
	w.time(*v)
}

func (w *writer) strs(v []string) {
	w.count(len(v))
	for _, s := range v {
		w.str(s)
	}
}

// reader decodes sequentially and records the first error; later reads become no-ops.
type reader struct {
	bs  []byte
	n   int
	err error
}

func (r *reader) fail(what string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("%w: %s at offset %d: %w", ErrSerializationFailed, what, r.n, err)
	}
}

func (r *reader) str() string {
	if r.err != nil {
		return ""
	}
	v, n, err := ord.String.Unmarshal(r.bs[r.n:])
	if err != nil {
		r.fail("string", err)
		return ""
	}
	r.n += n
	return v
}

func (r *reader) bool() bool {
	if r.err != nil {
		return false
	}
	v, n, err := ord.Bool.Unmarshal(r.bs[r.n:])
	if err != nil {
		r.fail("bool", err)
		return false
	}
	r.n += n
	return v
}

func (r *reader) int64() int64 {
	if r.err != nil {
		return 0
	}
	v, n, err := varint.Int64.Unmarshal(r.bs[r.n:])
	if err != nil {
		r.fail("int64", err)
		return 0
	}
	r.n += n
	return v
}

func (r *reader) int() int {
	return int(r.int64())
}

// maxCount bounds decoded slice and map lengths so corrupt input cannot force huge allocations.
const maxCount = 1 << 20

func (r *reader) count() int {
	if r.err != nil {
		return 0
	}
	v, n, err := varint.PositiveInt.Unmarshal(r.bs[r.n:])
	if err != nil {
		r.fail("length", err)
		return 0
	}
	if v < 0 || v > maxCount || v > len(r.bs) {
		r.fail("length", ErrTruncatedData)
		return 0
	}
	r.n += n
	return v
}

func (r *reader) float64() float64 {
	if r.err != nil {
		return 0
	}
	v, n, err := varint.Uint64.Unmarshal(r.bs[r.n:])
	if err != nil {
		r.fail("float64", err)
		return 0
	}
	r.n += n
	return math.Float64frombits(v)
}

func (r *reader) time() time.Time {
	if !r.bool() {
		return time.Time{}
	}
	us := r.int64()
	if r.err != nil {
		return time.Time{}
	}
	return time.UnixMicro(us).UTC()
}

func (r *reader) timePtr() *time.Time {
	t := r.time()
	if t.IsZero() {
		return nil
	}
	return &t
}

func (r *reader) strs() []string {
	n := r.count()
	if n == 0 {
		return nil
	}
	out := make([]string, 0, n)
	for i := 0; i < n && r.err == nil; i++ {
		out = append(out, r.str())
	}
	return out
}

func (r *reader) done() error {
	if r.err != nil {
		return r.err
	}
	if r.n != len(r.bs) {
		return fmt.Errorf("%w: %d trailing bytes", ErrSerializationFailed, len(r.bs)-r.n)
	}
	return nil
}
