package raster

// Placeholder dimensions of the generated default source.
const (
	PlaceholderWidth  = 200
	PlaceholderHeight = 100
)

// Placeholder builds the default source shown before any photo is loaded:
// a diagonal colour ramp that exercises every filter.
func Placeholder() *Raster {
	r := New(PlaceholderWidth, PlaceholderHeight)
	for y := 0; y < r.Height; y++ {
		for x := 0; x < r.Width; x++ {
			r.Set(x, y,
				uint8(x%100+40),
				uint8(y%100+80),
				uint8((x+y)%100+120),
			)
		}
	}
	return r
}
