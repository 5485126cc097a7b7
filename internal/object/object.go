// Package object reads and writes object buffers: verified SSA functions of
// one module in protobuf wire format behind a short header.
//
// Layout:
//
//	"FXOB" version:byte message
//
// where message is
//
//	1: build id (bytes, 16)
//	2: module name (string)
//	3: function (message, repeated)
//	4: codegen version (string)
//
// A function is
//
//	1: name  2: result type  3: param value id (packed)  4: block (repeated)
//
// a block is
//
//	1: id  2: kind  3: control value id + 1  4: succ ids (packed)
//	5: pred ids (packed)  6: value (repeated)
//
// and a value is
//
//	1: id  2: op  3: type  4: arg ids (packed)  5: bits (fixed64)
//	6: aux  7: name
package object

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/funvibe/funxc/internal/config"
	"github.com/funvibe/funxc/internal/ssa"
)

const (
	Magic   = "FXOB"
	Version = 1
)

// Namespace seeds the name-based build ids.
var Namespace = uuid.MustParse("5f1c8e2a-7d3b-4c11-9a6e-0b2d4f6a8c10")

// File is the decoded content of an object buffer.
type File struct {
	BuildID        uuid.UUID
	Module         string
	CodegenVersion string
	Funcs          []*ssa.Func
}

// Lookup returns the function named name.
func (f *File) Lookup(name string) (*ssa.Func, bool) {
	for _, fn := range f.Funcs {
		if fn.Name == name {
			return fn, true
		}
	}
	return nil, false
}

// ErrBadMagic reports a buffer that is not an object buffer.
var ErrBadMagic = errors.New("object: not an object buffer")

// Encode writes funcs, sorted by name, into a new object buffer. The build
// id is derived from the encoded functions, so equal input yields equal
// bytes.
func Encode(module string, funcs []*ssa.Func) []byte {
	sorted := append([]*ssa.Func(nil), funcs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	var body []byte
	body = protowire.AppendTag(body, 2, protowire.BytesType)
	body = protowire.AppendString(body, module)
	for _, fn := range sorted {
		body = protowire.AppendTag(body, 3, protowire.BytesType)
		body = protowire.AppendBytes(body, encodeFunc(fn))
	}
	body = protowire.AppendTag(body, 4, protowire.BytesType)
	body = protowire.AppendString(body, config.CodegenVersion)

	id := uuid.NewSHA1(Namespace, body)
	out := append([]byte(Magic), Version)
	out = protowire.AppendTag(out, 1, protowire.BytesType)
	out = protowire.AppendBytes(out, id[:])
	return append(out, body...)
}

func encodeFunc(fn *ssa.Func) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendString(b, fn.Name)
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(fn.Result))
	if len(fn.Params) > 0 {
		var ids []uint64
		for _, p := range fn.Params {
			ids = append(ids, uint64(p.ID))
		}
		b = appendPacked(b, 3, ids)
	}
	for _, blk := range fn.Blocks {
		b = protowire.AppendTag(b, 4, protowire.BytesType)
		b = protowire.AppendBytes(b, encodeBlock(blk))
	}
	return b
}

func encodeBlock(blk *ssa.Block) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(blk.ID))
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(blk.Kind))
	if blk.Control != nil {
		b = protowire.AppendTag(b, 3, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(blk.Control.ID)+1)
	}
	b = appendPacked(b, 4, blockIDs(blk.Succs))
	b = appendPacked(b, 5, blockIDs(blk.Preds))
	for _, v := range blk.Values {
		b = protowire.AppendTag(b, 6, protowire.BytesType)
		b = protowire.AppendBytes(b, encodeValue(v))
	}
	return b
}

func encodeValue(v *ssa.Value) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(v.ID))
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(v.Op))
	b = protowire.AppendTag(b, 3, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(v.Type))
	if len(v.Args) > 0 {
		ids := make([]uint64, len(v.Args))
		for i, a := range v.Args {
			ids[i] = uint64(a.ID)
		}
		b = appendPacked(b, 4, ids)
	}
	if v.Op == ssa.OP_CONST {
		b = protowire.AppendTag(b, 5, protowire.Fixed64Type)
		b = protowire.AppendFixed64(b, v.Bits)
	}
	if v.Op == ssa.OP_PARAM {
		b = protowire.AppendTag(b, 6, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(v.Aux))
		b = protowire.AppendTag(b, 7, protowire.BytesType)
		b = protowire.AppendString(b, v.Name)
	}
	return b
}

func blockIDs(blocks []*ssa.Block) []uint64 {
	ids := make([]uint64, len(blocks))
	for i, b := range blocks {
		ids[i] = uint64(b.ID)
	}
	return ids
}

func appendPacked(b []byte, num protowire.Number, xs []uint64) []byte {
	if len(xs) == 0 {
		return b
	}
	var packed []byte
	for _, x := range xs {
		packed = protowire.AppendVarint(packed, x)
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, packed)
}

// Decode parses an object buffer and verifies every function in it.
func Decode(data []byte) (*File, error) {
	if !bytes.HasPrefix(data, []byte(Magic)) || len(data) < len(Magic)+1 {
		return nil, ErrBadMagic
	}
	if v := data[len(Magic)]; v != Version {
		return nil, fmt.Errorf("object: unsupported version %d (want %d)", v, Version)
	}
	f := &File{}
	err := eachField(data[len(Magic)+1:], func(num protowire.Number, typ protowire.Type, b []byte, _ uint64) error {
		switch num {
		case 1:
			id, err := uuid.FromBytes(b)
			if err != nil {
				return fmt.Errorf("build id: %w", err)
			}
			f.BuildID = id
		case 2:
			f.Module = string(b)
		case 3:
			fn, err := decodeFunc(b)
			if err != nil {
				return fmt.Errorf("function %d: %w", len(f.Funcs), err)
			}
			f.Funcs = append(f.Funcs, fn)
		case 4:
			f.CodegenVersion = string(b)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("object: %w", err)
	}
	for _, fn := range f.Funcs {
		if err := ssa.Verify(fn); err != nil {
			return nil, fmt.Errorf("object: %w", err)
		}
	}
	return f, nil
}

type rawBlock struct {
	blk     *ssa.Block
	control uint64
	succs   []uint64
	preds   []uint64
	args    map[*ssa.Value][]uint64
}

func decodeFunc(data []byte) (*ssa.Func, error) {
	fn := &ssa.Func{}
	var params []uint64
	var raws []*rawBlock
	err := eachField(data, func(num protowire.Number, typ protowire.Type, b []byte, x uint64) error {
		switch num {
		case 1:
			fn.Name = string(b)
		case 2:
			fn.Result = ssa.Type(x)
		case 3:
			var err error
			params, err = unpack(b)
			return err
		case 4:
			raw, err := decodeBlock(b)
			if err != nil {
				return fmt.Errorf("block %d: %w", len(raws), err)
			}
			raws = append(raws, raw)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	blocks := make(map[uint64]*ssa.Block, len(raws))
	values := make(map[uint64]*ssa.Value)
	for _, raw := range raws {
		blocks[uint64(raw.blk.ID)] = raw.blk
		fn.Blocks = append(fn.Blocks, raw.blk)
		for _, v := range raw.blk.Values {
			values[uint64(v.ID)] = v
		}
	}
	resolveBlocks := func(ids []uint64) ([]*ssa.Block, error) {
		var out []*ssa.Block
		for _, id := range ids {
			b, ok := blocks[id]
			if !ok {
				return nil, fmt.Errorf("unknown block b%d", id)
			}
			out = append(out, b)
		}
		return out, nil
	}
	for _, raw := range raws {
		var err error
		if raw.blk.Succs, err = resolveBlocks(raw.succs); err != nil {
			return nil, err
		}
		if raw.blk.Preds, err = resolveBlocks(raw.preds); err != nil {
			return nil, err
		}
		if raw.control > 0 {
			c, ok := values[raw.control-1]
			if !ok {
				return nil, fmt.Errorf("unknown control value v%d", raw.control-1)
			}
			raw.blk.Control = c
		}
		for v, ids := range raw.args {
			for _, id := range ids {
				a, ok := values[id]
				if !ok {
					return nil, fmt.Errorf("unknown argument v%d of v%d", id, v.ID)
				}
				v.Args = append(v.Args, a)
			}
		}
	}
	for _, id := range params {
		p, ok := values[id]
		if !ok {
			return nil, fmt.Errorf("unknown parameter v%d", id)
		}
		fn.Params = append(fn.Params, p)
	}
	return fn, nil
}

func decodeBlock(data []byte) (*rawBlock, error) {
	raw := &rawBlock{blk: &ssa.Block{Sealed: true}, args: map[*ssa.Value][]uint64{}}
	err := eachField(data, func(num protowire.Number, typ protowire.Type, b []byte, x uint64) error {
		var err error
		switch num {
		case 1:
			raw.blk.ID = int(x)
		case 2:
			raw.blk.Kind = ssa.Kind(x)
		case 3:
			raw.control = x
		case 4:
			raw.succs, err = unpack(b)
		case 5:
			raw.preds, err = unpack(b)
		case 6:
			v, args, verr := decodeValue(b)
			if verr != nil {
				return verr
			}
			v.Block = raw.blk
			raw.blk.Values = append(raw.blk.Values, v)
			if len(args) > 0 {
				raw.args[v] = args
			}
		}
		return err
	})
	return raw, err
}

func decodeValue(data []byte) (*ssa.Value, []uint64, error) {
	v := &ssa.Value{}
	var args []uint64
	err := eachField(data, func(num protowire.Number, typ protowire.Type, b []byte, x uint64) error {
		var err error
		switch num {
		case 1:
			v.ID = int(x)
		case 2:
			v.Op = ssa.Op(x)
		case 3:
			v.Type = ssa.Type(x)
		case 4:
			args, err = unpack(b)
		case 5:
			v.Bits = x
		case 6:
			v.Aux = int(x)
		case 7:
			v.Name = string(b)
		}
		return err
	})
	return v, args, err
}

// eachField walks the fields of a message. Length-delimited fields are
// passed as b, numeric fields as x.
func eachField(data []byte, fn func(num protowire.Number, typ protowire.Type, b []byte, x uint64) error) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]
		var b []byte
		var x uint64
		switch typ {
		case protowire.VarintType:
			x, n = protowire.ConsumeVarint(data)
		case protowire.Fixed64Type:
			x, n = protowire.ConsumeFixed64(data)
		case protowire.BytesType:
			b, n = protowire.ConsumeBytes(data)
		default:
			n = protowire.ConsumeFieldValue(num, typ, data)
		}
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]
		if err := fn(num, typ, b, x); err != nil {
			return err
		}
	}
	return nil
}

func unpack(b []byte) ([]uint64, error) {
	var out []uint64
	for len(b) > 0 {
		x, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		out = append(out, x)
		b = b[n:]
	}
	return out, nil
}
