package classifier

import "math"

// adam implements the Adam update with the same defaults Keras uses.
type adam struct {
	lr, beta1, beta2, eps float64
	t                     int
}

func newAdam(lr float64) *adam {
	return &adam{lr: lr, beta1: 0.9, beta2: 0.999, eps: 1e-7}
}

// step applies one update using the accumulated gradients multiplied by
// scale, then clears them.
func (a *adam) step(params []*param, scale float64) {
	a.t++
	t := float64(a.t)
	lrT := a.lr * math.Sqrt(1-math.Pow(a.beta2, t)) / (1 - math.Pow(a.beta1, t))

	for _, p := range params {
		for i, g := range p.g {
			g *= scale
			p.m[i] = a.beta1*p.m[i] + (1-a.beta1)*g
			p.v[i] = a.beta2*p.v[i] + (1-a.beta2)*g*g
			p.w[i] -= lrT * p.m[i] / (math.Sqrt(p.v[i]) + a.eps)
		}
		clear(p.g)
	}
}
