package vm

import "github.com/ordo-lang/ordo/pkg/value"

// Program is a compiled bytecode unit: a flat instruction stream plus its
// two constant pools (values and strings — field paths/variable/function/
// member names never need to be value.Value payloads, so keeping them
// separate avoids wasting a Value slot's tag byte on every name).
type Program struct {
	Code   []byte
	Consts []value.Value
	Strs   []string
}
