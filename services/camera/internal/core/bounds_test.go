package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vcmipi-go/errcode"
)

func TestComputeBounds(t *testing.T) {
	m := Mode{Format: RAW12, Lanes: 4, VMaxMin: 1125, VMaxMax: 0x3ffff}
	b, err := ComputeBounds(m, testClk, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(testClk*12), b.LinkFreq)
	assert.Equal(t, int64(testClk*2*4), b.PixelRate)
	assert.Equal(t, Range{Min: 1125, Max: 0x3ffff, Def: 1125}, b.VBlank)
	assert.Equal(t, Range{Min: 0, Max: 10000, Def: 0}, b.HBlank)
}

func TestComputeBoundsUnknownDepthFails(t *testing.T) {
	_, err := ComputeBounds(Mode{Format: DataType(0x30)}, testClk, 2)
	assert.Equal(t, errcode.UnsupportedFormat, errcode.Of(err))
}

func TestAttachPublishesBounds(t *testing.T) {
	f := newFixture(t, defaultBoard())
	b := f.dev.Bounds()
	assert.Equal(t, int64(testClk*10), b.LinkFreq)
	assert.Equal(t, int64(testClk*2*2), b.PixelRate)

	lf, err := f.dev.Query(CtrlLinkFreq)
	require.NoError(t, err)
	assert.Equal(t, []int64{testClk * 10}, lf.IntMenu)
	item, err := f.dev.QueryMenu(CtrlLinkFreq, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(testClk*10), item.Value)

	pr, err := f.dev.Query(CtrlPixelRate)
	require.NoError(t, err)
	assert.Equal(t, pr.Min, pr.Max)
	v, err := f.dev.Get(CtrlPixelRate)
	require.NoError(t, err)
	assert.Equal(t, int64(testClk*4), v.Int)

	vb, err := f.dev.Query(CtrlVBlank)
	require.NoError(t, err)
	assert.Equal(t, int64(1100), vb.Min)
	assert.Equal(t, int64(0xfffff), vb.Max)
	assert.Equal(t, int64(1100), f.dev.Snapshot().VBlank)
}

func TestBoundsFollowPostWriteMode(t *testing.T) {
	f := newFixture(t, defaultBoard())
	_, err := f.dev.SetFormat(Format{Code: CodeY12, Width: 640, Height: 480})
	require.NoError(t, err)
	assert.Equal(t, int64(testClk*12), f.dev.Bounds().LinkFreq)

	require.NoError(t, f.dev.AcquirePower())
	_, err = f.dev.SetFormat(Format{Code: CodeY10, Width: 640, Height: 480})
	require.NoError(t, err)
	require.NoError(t, f.dev.Set(CtrlBinningMode, 1))
	b := f.dev.Bounds()
	assert.Equal(t, int64(testClk*10), b.LinkFreq)
	assert.Equal(t, int64(550), b.VBlank.Min)
	assert.Equal(t, int64(550), f.dev.Snapshot().VBlank, "vblank outside the new range snaps to its default")
}

func TestFrameRateWriteRepublishesBoundsOnSensorFailure(t *testing.T) {
	f := newFixture(t, defaultBoard())
	require.NoError(t, f.dev.AcquirePower())

	// Stale descriptor, as if a previous mode had been active.
	f.dev.ctrls[CtrlVBlank].desc.Max = 1

	f.sensor.fail["SetFrameRate"] = errNack
	err := f.dev.Set(CtrlFrameRate, 30_000)
	assert.Equal(t, errcode.DeviceIO, errcode.Of(err))
	assert.Equal(t, int64(0), f.dev.Snapshot().FrameRate)

	vb, err := f.dev.Query(CtrlVBlank)
	require.NoError(t, err)
	assert.Equal(t, int64(0xfffff), vb.Max)
}
