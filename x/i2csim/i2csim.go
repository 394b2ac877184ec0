// Package i2csim is an in-memory register file that satisfies
// tinygo.org/x/drivers.I2C. Targets use 16-bit big-endian register
// sub-addresses with auto-increment, the convention of Sony/VC MIPI sensors.
//
//	write: w = [regHi, regLo, data...], r = nil
//	read:  w = [regHi, regLo],          r = buf
package i2csim

import (
	"errors"
	"sync"

	"tinygo.org/x/drivers"
)

var (
	ErrNoDevice = errors.New("i2csim: no device at address")
	ErrShortTx  = errors.New("i2csim: short transaction")
)

var _ drivers.I2C = (*Bus)(nil)

// Write is one recorded register write.
type Write struct {
	Addr uint16
	Reg  uint16
	Data []byte
}

type target struct {
	regs map[uint16]byte
}

type Bus struct {
	mu      sync.Mutex
	targets map[uint16]*target
	log     []Write
	fail    map[uint16]error // addr -> sticky error
	failReg map[regKey]error
}

type regKey struct {
	addr uint16
	reg  uint16
}

func New(addrs ...uint16) *Bus {
	b := &Bus{
		targets: map[uint16]*target{},
		fail:    map[uint16]error{},
		failReg: map[regKey]error{},
	}
	for _, a := range addrs {
		b.targets[a] = &target{regs: map[uint16]byte{}}
	}
	return b
}

func (b *Bus) Tx(addr uint16, w, r []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.targets[addr]
	if !ok {
		return ErrNoDevice
	}
	if err := b.fail[addr]; err != nil {
		return err
	}
	if len(w) < 2 {
		return ErrShortTx
	}
	reg := uint16(w[0])<<8 | uint16(w[1])
	if err := b.failReg[regKey{addr, reg}]; err != nil {
		return err
	}
	if data := w[2:]; len(data) > 0 {
		for i, v := range data {
			t.regs[reg+uint16(i)] = v
		}
		b.log = append(b.log, Write{Addr: addr, Reg: reg, Data: append([]byte(nil), data...)})
	}
	for i := range r {
		r[i] = t.regs[reg+uint16(i)]
	}
	return nil
}

// Poke seeds register contents without recording a write.
func (b *Bus) Poke(addr, reg uint16, data ...byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.targets[addr]
	if !ok {
		return
	}
	for i, v := range data {
		t.regs[reg+uint16(i)] = v
	}
}

// Peek reads n register bytes starting at reg.
func (b *Bus) Peek(addr, reg uint16, n int) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]byte, n)
	if t, ok := b.targets[addr]; ok {
		for i := range out {
			out[i] = t.regs[reg+uint16(i)]
		}
	}
	return out
}

// Fail makes every transaction to addr return err. nil clears it.
func (b *Bus) Fail(addr uint16, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		delete(b.fail, addr)
		return
	}
	b.fail[addr] = err
}

// FailReg makes transactions starting at reg return err. nil clears it.
func (b *Bus) FailReg(addr, reg uint16, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	k := regKey{addr, reg}
	if err == nil {
		delete(b.failReg, k)
		return
	}
	b.failReg[k] = err
}

// Writes returns a copy of the write log.
func (b *Bus) Writes() []Write {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Write(nil), b.log...)
}

func (b *Bus) Reset() {
	b.mu.Lock()
	b.log = nil
	b.mu.Unlock()
}
