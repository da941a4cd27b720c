package guestrt

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// WASI preview1 errno values this shim actually produces.
const (
	wasiErrnoSuccess = 0
	wasiErrnoBadf    = 8
)

// wasiFiletypeRegularFile is WASI preview1's FILETYPE_REGULAR_FILE.
const wasiFiletypeRegularFile = 4

// registerWASIp1 wires the handful of wasi_snapshot_preview1 imports the
// guest image actually needs: fd_write on stdout (fd 1) forwards to
// printer, and fd_fdstat_get reports fd 1 as a regular file. Everything
// else is unreached in this embedding and panics loudly rather than
// silently misbehaving.
func registerWASIp1(ctx context.Context, engine wazero.Runtime, printer Printer) error {
	b := engine.NewHostModuleBuilder("wasi_snapshot_preview1")

	b.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(fdSeek),
			[]api.ValueType{api.ValueTypeI32, api.ValueTypeI64, api.ValueTypeI32, api.ValueTypeI32},
			[]api.ValueType{api.ValueTypeI32}).
		Export("fd_seek")

	b.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(fdClose),
			[]api.ValueType{api.ValueTypeI32},
			[]api.ValueType{api.ValueTypeI32}).
		Export("fd_close")

	b.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(fdWrite(printer)),
			[]api.ValueType{api.ValueTypeI32, api.ValueTypeI32, api.ValueTypeI32, api.ValueTypeI32},
			[]api.ValueType{api.ValueTypeI32}).
		Export("fd_write")

	b.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(fdFdstatGet),
			[]api.ValueType{api.ValueTypeI32, api.ValueTypeI32},
			[]api.ValueType{api.ValueTypeI32}).
		Export("fd_fdstat_get")

	_, err := b.Instantiate(ctx)
	return err
}

func fdSeek(ctx context.Context, mod api.Module, stack []uint64) {
	panic("wasi_snapshot_preview1.fd_seek: not supported in this embedding")
}

func fdClose(ctx context.Context, mod api.Module, stack []uint64) {
	panic("wasi_snapshot_preview1.fd_close: not supported in this embedding")
}

func fdWrite(printer Printer) api.GoModuleFunction {
	return api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
		fd := api.DecodeU32(stack[0])
		iovsPtr := api.DecodeU32(stack[1])
		iovsLen := api.DecodeU32(stack[2])
		nwrittenPtr := api.DecodeU32(stack[3])

		if fd != 1 {
			stack[0] = wasiErrnoBadf
			return
		}

		mem := mod.Memory()
		var total uint32
		for i := uint32(0); i < iovsLen; i++ {
			entry, ok := mem.Read(ctx, iovsPtr+i*8, 8)
			if !ok {
				panic("wasi_snapshot_preview1.fd_write: iovec array out of bounds")
			}
			base := le32(entry[0:4])
			length := le32(entry[4:8])
			data, ok := mem.Read(ctx, base, length)
			if !ok {
				panic("wasi_snapshot_preview1.fd_write: iovec buffer out of bounds")
			}
			if printer != nil {
				if _, err := printer.PrintOutput(string(data)); err != nil {
					panic(fmt.Sprintf("wasi_snapshot_preview1.fd_write: host print: %v", err))
				}
			}
			total += length
		}
		if !mem.WriteUint32Le(ctx, nwrittenPtr, total) {
			panic("wasi_snapshot_preview1.fd_write: nwritten pointer out of bounds")
		}
		stack[0] = wasiErrnoSuccess
	})
}

func fdFdstatGet(ctx context.Context, mod api.Module, stack []uint64) {
	fd := api.DecodeU32(stack[0])
	bufPtr := api.DecodeU32(stack[1])

	if fd != 1 {
		stack[0] = wasiErrnoBadf
		return
	}
	// fdstat_t: filetype(u8) + 7 pad + fs_flags(u16) + 6 pad +
	// fs_rights_base(u64) + fs_rights_inheriting(u64) = 24 bytes.
	buf := make([]byte, 24)
	buf[0] = wasiFiletypeRegularFile
	if !mod.Memory().Write(ctx, bufPtr, buf) {
		panic("wasi_snapshot_preview1.fd_fdstat_get: buffer out of bounds")
	}
	stack[0] = wasiErrnoSuccess
}

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
