package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vcmipi-go/errcode"
)

func TestAttachAnnouncesFirstFormat(t *testing.T) {
	f := newFixture(t, defaultBoard())
	got := f.dev.GetFormat()
	assert.Equal(t, Format{Code: CodeY10, Width: 1440, Height: 1080, Field: FieldNone, Colorspace: ColorspaceSRGB}, got)
	assert.Equal(t, []Format{got}, f.events.formats)
	assert.Equal(t, 2, f.sensor.lanes)
	assert.Equal(t, CodeY10, f.sensor.code)
	assert.Equal(t, Rect{Width: 1440, Height: 1080}, f.sensor.frame)
}

func TestEnumFormats(t *testing.T) {
	f := newFixture(t, defaultBoard())
	codes, err := f.dev.EnumFormats(PadImage)
	require.NoError(t, err)
	assert.Equal(t, []BusCode{CodeY10, CodeY12, CodeY14, CodeY8}, codes)

	meta, err := f.dev.EnumFormats(PadMetadata)
	require.NoError(t, err)
	assert.Equal(t, []BusCode{CodeSensorData}, meta)

	_, err = f.dev.EnumFormats(2)
	assert.Equal(t, errcode.InvalidParams, errcode.Of(err))

	r := newFixture(t, Board{Lanes: 2, RestrictedHost: true})
	codes, err = r.dev.EnumFormats(PadImage)
	require.NoError(t, err)
	assert.Equal(t, []BusCode{CodeY10, CodeY12, CodeY8}, codes)
	_, err = r.dev.SetFormat(Format{Code: CodeY14, Width: 64, Height: 64})
	assert.Equal(t, errcode.UnsupportedFormat, errcode.Of(err))
}

func TestEnumFrameSize(t *testing.T) {
	f := powered(t, defaultBoard())
	fs, err := f.dev.EnumFrameSize(CodeY12)
	require.NoError(t, err)
	assert.Equal(t, FrameSize{MinWidth: 32, MaxWidth: 1440, MinHeight: 32, MaxHeight: 1080}, fs)

	require.NoError(t, f.dev.Set(CtrlBinningMode, 1))
	fs, err = f.dev.EnumFrameSize(CodeY10)
	require.NoError(t, err)
	assert.Equal(t, uint32(720), fs.MaxWidth)
	assert.Equal(t, uint32(540), fs.MaxHeight)

	_, err = f.dev.EnumFrameSize(CodeSRGGB10)
	assert.Equal(t, errcode.UnsupportedFormat, errcode.Of(err))
}

func TestFrameSizeMaxNeverBelowMinimum(t *testing.T) {
	desc := testDescriptor()
	desc.Frame = Rect{Width: 40, Height: 20}
	desc.Binnings = []Binning{{}, {HFactor: 4, VFactor: 4}}
	f := newFixtureWith(t, desc, defaultBoard())

	fs, err := f.dev.EnumFrameSize(CodeY10)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, fs.MaxWidth, uint32(32))
	assert.GreaterOrEqual(t, fs.MaxHeight, uint32(32))
	assert.GreaterOrEqual(t, f.dev.GetFormat().Height, uint32(32))
}

func TestSetFormatClampsAndResetsCrop(t *testing.T) {
	f := newFixture(t, defaultBoard())
	_, err := f.dev.SetSelection(TargetCrop, Rect{Left: 10, Top: 10, Width: 100, Height: 100})
	require.NoError(t, err)

	got, err := f.dev.SetFormat(Format{Code: CodeY12, Width: 10, Height: 5000, Field: "interlaced"})
	require.NoError(t, err)
	assert.Equal(t, Format{Code: CodeY12, Width: 32, Height: 1080, Field: FieldNone, Colorspace: ColorspaceSRGB}, got)
	assert.Equal(t, Rect{Width: 32, Height: 1080}, f.dev.Snapshot().Crop)
	assert.Equal(t, uint32(120), f.dev.Snapshot().Mode.HMax)
	assert.Equal(t, CodeY12, f.sensor.code)
}

func TestSetFormatWithoutModeLeavesState(t *testing.T) {
	f := newFixture(t, defaultBoard())
	before := f.dev.Snapshot()
	f.sensor.calls = nil

	_, err := f.dev.SetFormat(Format{Code: CodeY14, Width: 640, Height: 480})
	assert.Equal(t, errcode.ModeNotFound, errcode.Of(err))
	assert.Equal(t, before, f.dev.Snapshot())
	assert.Empty(t, f.sensor.calls)

	_, err = f.dev.SetFormat(Format{Code: CodeSRGGB10, Width: 640, Height: 480})
	assert.Equal(t, errcode.UnsupportedFormat, errcode.Of(err))
}

func TestSetFormatSensorFailureLeavesState(t *testing.T) {
	f := newFixture(t, defaultBoard())
	before := f.dev.Snapshot()
	f.sensor.fail["SetFrame"] = errNack

	_, err := f.dev.SetFormat(Format{Code: CodeY12, Width: 640, Height: 480})
	assert.Equal(t, errcode.DeviceIO, errcode.Of(err))
	assert.Equal(t, before, f.dev.Snapshot())
}

func TestSelectionRoundTrip(t *testing.T) {
	f := newFixture(t, defaultBoard())
	r := Rect{Left: 8, Top: 4, Width: 640, Height: 480}
	got, err := f.dev.SetSelection(TargetCrop, r)
	require.NoError(t, err)
	assert.Equal(t, r, got)

	back, err := f.dev.GetSelection(TargetCrop)
	require.NoError(t, err)
	assert.Equal(t, r, back)
	assert.Equal(t, r, f.sensor.frame)

	for _, tgt := range []SelectionTarget{TargetCropDefault, TargetCropBounds} {
		b, err := f.dev.GetSelection(tgt)
		require.NoError(t, err)
		assert.Equal(t, Rect{Width: 1440, Height: 1080}, b)
	}

	_, err = f.dev.SetSelection(TargetCropBounds, r)
	assert.Equal(t, errcode.InvalidParams, errcode.Of(err))
	_, err = f.dev.GetSelection("compose")
	assert.Equal(t, errcode.InvalidParams, errcode.Of(err))
}

func TestSetSelectionIsNotValidated(t *testing.T) {
	f := newFixture(t, defaultBoard())
	r := Rect{Left: -4, Top: 2000, Width: 5000, Height: 1}
	_, err := f.dev.SetSelection(TargetCrop, r)
	require.NoError(t, err)
	assert.Equal(t, r, f.dev.Snapshot().Crop)
}
