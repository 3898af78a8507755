package testutil

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// Mach-O constants used by the fixture writer
const (
	lcIDDylib          = 0xd
	lcLoadDylib        = 0xc
	lcLoadWeakDylib    = 0x80000018
	lcEncryptionInfo64 = 0x2c

	mhMagic64 = 0xfeedfacf
	cpuARM64  = 0x0100000c
	mhExecute = 0x2
	mhDylib   = 0x6
)

// MachO describes a minimal 64-bit Mach-O file
type MachO struct {
	ID        string   // LC_ID_DYLIB, makes the file a dylib when set
	Deps      []string // LC_LOAD_DYLIB
	WeakDeps  []string // LC_LOAD_WEAK_DYLIB
	Encrypted bool     // adds LC_ENCRYPTION_INFO_64 with cryptid 1
}

// WriteMachO writes m to path
func WriteMachO(t *testing.T, path string, m MachO) {
	t.Helper()

	le := binary.LittleEndian
	var cmds bytes.Buffer
	ncmds := 0

	dylib := func(cmd uint32, name string) {
		nameBytes := append([]byte(name), 0)
		size := 24 + len(nameBytes)
		if pad := size % 8; pad != 0 {
			size += 8 - pad
		}
		buf := make([]byte, size)
		le.PutUint32(buf[0:], cmd)
		le.PutUint32(buf[4:], uint32(size))
		le.PutUint32(buf[8:], 24)       // name offset
		le.PutUint32(buf[12:], 2)       // timestamp
		le.PutUint32(buf[16:], 0x10000) // current version 1.0.0
		le.PutUint32(buf[20:], 0x10000) // compatibility version 1.0.0
		copy(buf[24:], nameBytes)
		cmds.Write(buf)
		ncmds++
	}

	filetype := uint32(mhExecute)
	if m.ID != "" {
		filetype = mhDylib
		dylib(lcIDDylib, m.ID)
	}
	for _, d := range m.Deps {
		dylib(lcLoadDylib, d)
	}
	for _, d := range m.WeakDeps {
		dylib(lcLoadWeakDylib, d)
	}
	if m.Encrypted {
		buf := make([]byte, 24)
		le.PutUint32(buf[0:], lcEncryptionInfo64)
		le.PutUint32(buf[4:], 24)
		le.PutUint32(buf[8:], 0x4000)  // cryptoff
		le.PutUint32(buf[12:], 0x4000) // cryptsize
		le.PutUint32(buf[16:], 1)      // cryptid
		cmds.Write(buf)
		ncmds++
	}

	header := make([]byte, 32)
	le.PutUint32(header[0:], mhMagic64)
	le.PutUint32(header[4:], cpuARM64)
	le.PutUint32(header[8:], 0)
	le.PutUint32(header[12:], filetype)
	le.PutUint32(header[16:], uint32(ncmds))
	le.PutUint32(header[20:], uint32(cmds.Len()))
	le.PutUint32(header[24:], 0)
	le.PutUint32(header[28:], 0)

	var out bytes.Buffer
	out.Write(header)
	out.Write(cmds.Bytes())
	// pad so the file is larger than its header for readers that probe
	out.Write(make([]byte, 256))

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("writing mach-o: %v", err)
	}
	if err := os.WriteFile(path, out.Bytes(), 0755); err != nil {
		t.Fatalf("writing mach-o: %v", err)
	}
}
