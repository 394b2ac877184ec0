package core

// exposureRegime converts the exposure control value to microseconds.
type exposureRegime interface {
	unit() ExposureUnit
	limits(sensor Range) Range
	toMicros(v, tplNs int64) int64
}

// linesRegime takes exposure as a line count.
type linesRegime struct{}

func (linesRegime) unit() ExposureUnit { return ExposureLines }
func (linesRegime) limits(Range) Range { return Range{Min: 1, Max: 1000000, Def: 10} }
func (linesRegime) toMicros(v, tplNs int64) int64 { return v * tplNs / 1000 }

type microsRegime struct{}

func (microsRegime) unit() ExposureUnit { return ExposureMicros }
func (microsRegime) limits(r Range) Range { return r }
func (microsRegime) toMicros(v, _ int64) int64 { return v }

func regimeFor(b Board) exposureRegime {
	switch b.ExposureUnit {
	case ExposureLines:
		return linesRegime{}
	case ExposureMicros:
		return microsRegime{}
	}
	if b.RestrictedHost {
		return linesRegime{}
	}
	return microsRegime{}
}
