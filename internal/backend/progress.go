package backend

import (
	"io"
	"math"
)

// progressReader reports how much of a known-length body has been read.
// It only calls fn when the whole percentage changes.
type progressReader struct {
	r     io.Reader
	total int64
	read  int64
	last  int
	fn    ProgressFunc
}

func newProgressReader(r io.Reader, total int64, fn ProgressFunc) *progressReader {
	return &progressReader{r: r, total: total, last: -1, fn: fn}
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.read += int64(n)
		p.report()
	}
	return n, err
}

func (p *progressReader) report() {
	if p.fn == nil || p.total <= 0 {
		return
	}
	pct := int(math.Round(float64(p.read) / float64(p.total) * 100))
	if pct > 100 {
		pct = 100
	}
	if pct != p.last {
		p.last = pct
		p.fn(pct)
	}
}
