package mask

// plane is a view of one image plane inside a borrowed frame buffer.
type plane struct {
	data     []byte
	width    int
	height   int
	channels int
}

// framePlanes splits an NV12 buffer into its luma and chroma views. The
// buffer must be at least g.FrameSize() bytes.
func framePlanes(g Geometry, buf []byte) (luma, chroma plane) {
	lumaSize := g.LumaSize()
	luma = plane{
		data:     buf[:lumaSize],
		width:    g.Width,
		height:   g.Height,
		channels: 1,
	}
	chroma = plane{
		data:     buf[lumaSize : lumaSize+g.ChromaSize()],
		width:    g.ChromaWidth(),
		height:   g.ChromaHeight(),
		channels: 2,
	}
	return luma, chroma
}

// fillSpan writes value into columns x0..x1 (inclusive) of row y. Columns
// outside the plane are skipped.
func (p plane) fillSpan(y, x0, x1 int, value []byte) {
	if y < 0 || y >= p.height {
		return
	}
	if x0 < 0 {
		x0 = 0
	}
	if x1 >= p.width {
		x1 = p.width - 1
	}
	if x0 > x1 {
		return
	}

	row := p.data[y*p.width*p.channels : (y+1)*p.width*p.channels]
	if p.channels == 1 {
		v := value[0]
		for x := x0; x <= x1; x++ {
			row[x] = v
		}
		return
	}
	for x := x0; x <= x1; x++ {
		copy(row[x*p.channels:(x+1)*p.channels], value)
	}
}
