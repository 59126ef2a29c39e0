package correlation

import "github.com/born-ml/correlation/internal/tensor"

// backwardKernel computes input gradients with the gather formulation: each
// gradient element sums every output cell that read it, instead of output
// cells scattering into shared inputs. Work item (b, y) owns all channels and
// columns of gradient row y, so workers never write the same element and the
// summation order is fixed.
type backwardKernel[T tensor.Float] struct {
	ops      vecOps[T]
	g        Geometry
	channels int
	scale    T
}

// gradInput1 fills d1 = dL/d(input1). Both d1 and d2 must be zeroed beforehand.
//
// input1[b,:,y,x] was multiplied by input2[b,:,y+dy,x+dx] in every output cell
// (ph, pw, i, j) whose tap lands on (y, x).
func (k backwardKernel[T]) gradInput1(s Scheduler, d1, in2, grad []T, batch int) {
	runGrid(s, batch, k.g.rows.size, func(b, y int) {
		k.gatherRow(d1, in2, grad, b, y, +1)
	})
}

// gradInput2 fills d2 = dL/d(input2).
//
// input2[b,:,y,x] was multiplied by input1[b,:,y-dy,x-dx] in every output cell
// whose tap lands on (y-dy, x-dx).
func (k backwardKernel[T]) gradInput2(s Scheduler, d2, in1, grad []T, batch int) {
	runGrid(s, batch, k.g.rows.size, func(b, y int) {
		k.gatherRow(d2, in1, grad, b, y, -1)
	})
}

// gatherRow accumulates gradient row (b, :, y, :) of dst.
//
// dir=+1: dst is input1's gradient, the tap position is (y, x) and the partner
// element sits at (y+dy, x+dx) in other.
// dir=-1: dst is input2's gradient, the tap position is (y-dy, x-dx) and the
// partner element sits there in other.
func (k backwardKernel[T]) gatherRow(dst, other, grad []T, b, y, dir int) {
	g := k.g
	rows, cols := g.rows, g.cols
	width := cols.size
	plane := rows.size * width
	base := b * k.channels * plane
	gradBase := b * g.PatchH * g.PatchW * g.OutH * g.OutW

	for x := 0; x < width; x++ {
		d := dst[base+y*width+x:]
		for ph := 0; ph < g.PatchH; ph++ {
			dy := rows.shift(ph)
			ty, py := y, y+dy // tap row, partner row
			if dir < 0 {
				ty, py = y-dy, y-dy
			}
			if !rows.inside(ty) || !rows.inside(py) {
				continue
			}
			for pw := 0; pw < g.PatchW; pw++ {
				dx := cols.shift(pw)
				tx, px := x, x+dx
				if dir < 0 {
					tx, px = x-dx, x-dx
				}
				if !cols.inside(tx) || !cols.inside(px) {
					continue
				}
				src := other[base+py*width+px:]
				cell := gradBase + (ph*g.PatchW+pw)*g.OutH*g.OutW

				for ki := 0; ki < rows.kernel; ki++ {
					i, ok := rows.outputFor(ty, ki)
					if !ok {
						continue
					}
					for kj := 0; kj < cols.kernel; kj++ {
						j, ok := cols.outputFor(tx, kj)
						if !ok {
							continue
						}
						k.ops.axpy(k.channels, grad[cell+i*g.OutW+j]*k.scale, src, d, plane)
					}
				}
			}
		}
	}
}
