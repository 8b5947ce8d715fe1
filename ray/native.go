//go:build rayforce

package ray

/*
#cgo LDFLAGS: -lrayforce -lm

#include <stdint.h>
#include <stdlib.h>

typedef struct obj_t obj_t;

extern int32_t ray_init(void);
extern void    ray_clean(void);
extern obj_t  *eval_str(const char *code);
extern void    drop_obj(obj_t *obj);
extern obj_t  *at_idx(obj_t *obj, int64_t idx);
extern obj_t  *at_sym(obj_t *obj, const char *sym, int64_t len);
extern obj_t  *ray_key(obj_t *obj);
extern obj_t  *ray_value(obj_t *obj);
extern int64_t ray_count(obj_t *obj);
*/
import "C"

import (
	"fmt"
	"unsafe"
)

// Native drives the embedded Rayforce runtime over its C API. All methods
// must run on the goroutine that called Init; the runtime performs no
// internal synchronization and keeps thread-local state, so the caller is
// expected to have locked its OS thread.
type Native struct {
	initialized bool
}

// NewNative creates the engine. The runtime itself comes up in Init.
func NewNative() Engine {
	return &Native{}
}

// Value layout, from the runtime's obj_t header:
//
//	offset 0  mmod   u8
//	offset 1  order  u8
//	offset 2  type   i8
//	offset 3  attrs  u8
//	offset 4  rc     u32
//	offset 8  union: atom payload, or i64 element count for vectors
//	offset 16 vector element buffer pointer
const (
	tagOffset     = 2
	payloadOffset = 8
	bufferOffset  = 16
)

type nativeValue struct {
	p *C.obj_t
}

func (v *nativeValue) Tag() Tag {
	return Tag(*(*int8)(unsafe.Add(unsafe.Pointer(v.p), tagOffset)))
}

func (v *nativeValue) payload() unsafe.Pointer {
	return unsafe.Add(unsafe.Pointer(v.p), payloadOffset)
}

func (v *nativeValue) length() int64 {
	return *(*int64)(v.payload())
}

func (v *nativeValue) buffer() unsafe.Pointer {
	return *(*unsafe.Pointer)(unsafe.Add(unsafe.Pointer(v.p), bufferOffset))
}

func (e *Native) Init() error {
	if e.initialized {
		return nil
	}
	if rc := C.ray_init(); rc != 0 {
		return fmt.Errorf("ray_init returned %d", int32(rc))
	}
	e.initialized = true
	return nil
}

func (e *Native) Eval(src string) Value {
	cs := C.CString(src)
	defer C.free(unsafe.Pointer(cs))

	obj := C.eval_str(cs)
	if obj == nil {
		return nil
	}
	return &nativeValue{p: obj}
}

func (e *Native) Release(v Value) {
	if nv, ok := v.(*nativeValue); ok && nv.p != nil {
		C.drop_obj(nv.p)
		nv.p = nil
	}
}

func (e *Native) At(v Value, i int64) Value {
	nv, ok := v.(*nativeValue)
	if !ok || nv.p == nil {
		return nil
	}
	obj := C.at_idx(nv.p, C.int64_t(i))
	if obj == nil {
		return nil
	}
	return &nativeValue{p: obj}
}

func (e *Native) Field(v Value, name string) Value {
	nv, ok := v.(*nativeValue)
	if !ok || nv.p == nil {
		return nil
	}
	cs := C.CString(name)
	defer C.free(unsafe.Pointer(cs))

	obj := C.at_sym(nv.p, cs, C.int64_t(len(name)))
	if obj == nil {
		return nil
	}
	return &nativeValue{p: obj}
}

func (e *Native) Keys(v Value) Value {
	nv, ok := v.(*nativeValue)
	if !ok || nv.p == nil {
		return nil
	}
	obj := C.ray_key(nv.p)
	if obj == nil {
		return nil
	}
	return &nativeValue{p: obj}
}

func (e *Native) Vals(v Value) Value {
	nv, ok := v.(*nativeValue)
	if !ok || nv.p == nil {
		return nil
	}
	obj := C.ray_value(nv.p)
	if obj == nil {
		return nil
	}
	return &nativeValue{p: obj}
}

func (e *Native) Count(v Value) int64 {
	nv, ok := v.(*nativeValue)
	if !ok || nv.p == nil {
		return 0
	}
	return int64(C.ray_count(nv.p))
}

func (e *Native) Int(v Value) int64 {
	nv, ok := v.(*nativeValue)
	if !ok || nv.p == nil {
		return 0
	}
	p := nv.payload()
	switch nv.Tag() {
	case -TagB8, -TagU8:
		return int64(*(*uint8)(p))
	case -TagI16:
		return int64(*(*int16)(p))
	case -TagI32, -TagDate, -TagTime:
		return int64(*(*int32)(p))
	default:
		return *(*int64)(p)
	}
}

func (e *Native) Float(v Value) float64 {
	nv, ok := v.(*nativeValue)
	if !ok || nv.p == nil {
		return 0
	}
	return *(*float64)(nv.payload())
}

func (e *Native) Text(v Value) string {
	nv, ok := v.(*nativeValue)
	if !ok || nv.p == nil {
		return ""
	}
	switch nv.Tag() {
	case -TagSymbol:
		// Symbol atoms hold a pointer to an interned, length-prefixed
		// buffer: i64 byte count, then the bytes.
		sym := *(*unsafe.Pointer)(nv.payload())
		if sym == nil {
			return ""
		}
		n := *(*int64)(sym)
		if n <= 0 {
			return ""
		}
		return decodeLossy(unsafe.Slice((*byte)(unsafe.Add(sym, 8)), n))
	case -TagC8:
		return string(rune(*(*byte)(nv.payload())))
	case TagC8:
		n := nv.length()
		if n <= 0 {
			return ""
		}
		return decodeLossy(unsafe.Slice((*byte)(nv.buffer()), n))
	}
	return ""
}

func (e *Native) Ints(v Value) ([]int64, bool) {
	nv, ok := v.(*nativeValue)
	if !ok || nv.p == nil {
		return nil, false
	}
	tag := nv.Tag()
	if !tag.IsVector() || !tag.IsIntFamily() {
		return nil, false
	}

	n := nv.length()
	out := make([]int64, n)
	if n == 0 {
		return out, true
	}
	buf := nv.buffer()

	switch tag {
	case TagB8, TagU8:
		for i, b := range unsafe.Slice((*uint8)(buf), n) {
			out[i] = int64(b)
		}
	case TagI16:
		for i, x := range unsafe.Slice((*int16)(buf), n) {
			out[i] = int64(x)
		}
	case TagI32, TagDate, TagTime:
		for i, x := range unsafe.Slice((*int32)(buf), n) {
			out[i] = int64(x)
		}
	default: // TagI64, TagTimestamp
		copy(out, unsafe.Slice((*int64)(buf), n))
	}
	return out, true
}

func (e *Native) Floats(v Value) ([]float64, bool) {
	nv, ok := v.(*nativeValue)
	if !ok || nv.p == nil || nv.Tag() != TagF64 {
		return nil, false
	}
	n := nv.length()
	out := make([]float64, n)
	if n > 0 {
		copy(out, unsafe.Slice((*float64)(nv.buffer()), n))
	}
	return out, true
}

func (e *Native) Close() {
	if e.initialized {
		C.ray_clean()
		e.initialized = false
	}
}
