// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fut

// Future is the consumer-side handle of one activation cycle, a
// (source, version) pair issued by CreateFuture.
//
// A Future is a small value and is passed by copy; all copies address the
// same cycle. Once the cycle is consumed or the source recycled, every
// copy goes stale and reports [ErrStaleToken]. The zero Future is not
// bound to any source.
type Future[T any] struct {
	src *Source[T]
	ver Version
}

// Version returns the cycle's version token.
func (f Future[T]) Version() Version {
	return f.ver
}

// Status is a non-consuming peek, see [Source.GetStatus].
func (f Future[T]) Status() (Status, error) {
	return f.src.GetStatus(f.ver)
}

// Result consumes the completed cycle, see [Source.GetResult].
func (f Future[T]) Result() (T, error) {
	return f.src.GetResult(f.ver)
}

// OnCompleted registers the cycle's continuation, see [Source.OnCompleted].
func (f Future[T]) OnCompleted(fn Continuation, state any, flags Flags) error {
	return f.src.OnCompleted(f.ver, fn, state, flags)
}
