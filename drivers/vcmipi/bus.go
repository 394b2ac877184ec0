package vcmipi

// Register access: 16-bit big-endian sub-address followed by little-endian
// data, LSB at the lowest address.

func (d *Device) writeReg(r Reg, v uint32) error {
	return d.write(d.addr, r, v)
}

func (d *Device) write(addr uint16, r Reg, v uint32) error {
	if !r.present() {
		return ErrNoRegister
	}
	if r.Width > 4 {
		return ErrRegisterSize
	}
	d.w[0] = byte(r.Addr >> 8)
	d.w[1] = byte(r.Addr)
	for i := uint8(0); i < r.Width; i++ {
		d.w[2+i] = byte(v >> (8 * i))
	}
	return d.i2c.Tx(addr, d.w[:2+r.Width], nil)
}

func (d *Device) readReg(r Reg) (uint32, error) {
	if !r.present() {
		return 0, ErrNoRegister
	}
	if r.Width > 4 {
		return 0, ErrRegisterSize
	}
	d.w[0] = byte(r.Addr >> 8)
	d.w[1] = byte(r.Addr)
	if err := d.i2c.Tx(d.addr, d.w[:2], d.r[:r.Width]); err != nil {
		return 0, err
	}
	var v uint32
	for i := uint8(0); i < r.Width; i++ {
		v |= uint32(d.r[i]) << (8 * i)
	}
	return v, nil
}

// InStandby reads back the standby register.
func (d *Device) InStandby() (bool, error) {
	v, err := d.readReg(d.regs.Standby)
	if err != nil {
		return false, err
	}
	return v&standbyOn != 0, nil
}
