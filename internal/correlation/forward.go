package correlation

import "github.com/born-ml/correlation/internal/tensor"

// forwardKernel computes the correlation volume for one batch of NCHW inputs.
//
// Work item k addresses the output row (b, ph, pw, i) and writes
// out[k*OutW : (k+1)*OutW]; no two items share an output element.
type forwardKernel[T tensor.Float] struct {
	ops      vecOps[T]
	g        Geometry
	channels int
	scale    T
}

// run fills out ([B, PH, PW, oH, oW]) from in1 and in2 ([B, C, H, W]).
func (k forwardKernel[T]) run(s Scheduler, out, in1, in2 []T, batch int) {
	g := k.g
	s.Run(batch*g.PatchH*g.PatchW*g.OutH, func(item int) {
		i := item % g.OutH
		rest := item / g.OutH
		pw := rest % g.PatchW
		rest /= g.PatchW
		ph := rest % g.PatchH
		b := rest / g.PatchH

		k.row(out[item*g.OutW:(item+1)*g.OutW], in1, in2, b, ph, pw, i)
	})
}

// row computes every output column of cell row (b, ph, pw, i).
//
// Out-of-bounds taps (virtual padding, or a shift leaving the image) are
// skipped. Taps accumulate in row-major order, channels innermost.
func (k forwardKernel[T]) row(dst, in1, in2 []T, b, ph, pw, i int) {
	rows, cols := k.g.rows, k.g.cols
	width := cols.size
	plane := rows.size * width
	base := b * k.channels * plane

	dy, dx := rows.shift(ph), cols.shift(pw)
	y0 := rows.anchor(i)

	for j := range dst {
		x0 := cols.anchor(j)
		var sum T
		for ki := 0; ki < rows.kernel; ki++ {
			y1 := rows.tap(y0, ki)
			y2 := y1 + dy
			if !rows.inside(y1) || !rows.inside(y2) {
				continue
			}
			for kj := 0; kj < cols.kernel; kj++ {
				x1 := cols.tap(x0, kj)
				x2 := x1 + dx
				if !cols.inside(x1) || !cols.inside(x2) {
					continue
				}
				sum += k.ops.dot(k.channels, in1[base+y1*width+x1:], in2[base+y2*width+x2:], plane)
			}
		}
		dst[j] = sum * k.scale
	}
}
