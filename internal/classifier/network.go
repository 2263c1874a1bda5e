package classifier

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// param is one trainable tensor stored row-major, with its gradient and the
// Adam moment estimates.
type param struct {
	w, g, m, v []float64
}

func newParam(n int) *param {
	return &param{
		w: make([]float64, n),
		g: make([]float64, n),
		m: make([]float64, n),
		v: make([]float64, n),
	}
}

// network is embedding -> LSTM -> dense(relu) -> dropout -> dense(softmax).
// Padding ids are fed through the LSTM like any other id; there is no mask.
type network struct {
	vocab, emb, units, hidden, classes int

	embedding *param // vocab x emb
	wx        *param // 4*units x emb, gate order i, f, g, o
	wh        *param // 4*units x units
	b         *param // 4*units
	w1        *param // hidden x units
	b1        *param // hidden
	w2        *param // classes x hidden
	b2        *param // classes
}

func newNetwork(vocab, emb, units, hidden, classes int, rng *rand.Rand) *network {
	n := &network{
		vocab:     vocab,
		emb:       emb,
		units:     units,
		hidden:    hidden,
		classes:   classes,
		embedding: newParam(vocab * emb),
		wx:        newParam(4 * units * emb),
		wh:        newParam(4 * units * units),
		b:         newParam(4 * units),
		w1:        newParam(hidden * units),
		b1:        newParam(hidden),
		w2:        newParam(classes * hidden),
		b2:        newParam(classes),
	}

	for i := range n.embedding.w {
		n.embedding.w[i] = rng.Float64()*0.1 - 0.05
	}
	glorotUniform(n.wx.w, emb, 4*units, rng)
	orthogonal(n.wh.w, 4*units, units, rng)
	for j := units; j < 2*units; j++ {
		n.b.w[j] = 1
	}
	glorotUniform(n.w1.w, units, hidden, rng)
	glorotUniform(n.w2.w, hidden, classes, rng)
	return n
}

func (n *network) params() []*param {
	return []*param{n.embedding, n.wx, n.wh, n.b, n.w1, n.b1, n.w2, n.b2}
}

func glorotUniform(w []float64, fanIn, fanOut int, rng *rand.Rand) {
	limit := math.Sqrt(6 / float64(fanIn+fanOut))
	for i := range w {
		w[i] = (rng.Float64()*2 - 1) * limit
	}
}

// orthogonal fills a rows x cols matrix (rows >= cols) with the first cols
// columns of Q from the QR factorization of a standard normal sample. The
// columns are sign-corrected by diag(R) so the result is uniformly
// distributed over orthonormal matrices.
func orthogonal(w []float64, rows, cols int, rng *rand.Rand) {
	for i := range w {
		w[i] = rng.NormFloat64()
	}
	var qr mat.QR
	qr.Factorize(mat.NewDense(rows, cols, w))

	var q, r mat.Dense
	qr.QTo(&q)
	qr.RTo(&r)
	for c := 0; c < cols; c++ {
		sign := 1.0
		if r.At(c, c) < 0 {
			sign = -1
		}
		for i := 0; i < rows; i++ {
			w[i*cols+c] = sign * q.At(i, c)
		}
	}
}

// masks holds inverted-dropout multipliers (0 or 1/(1-rate)) for a single
// sequence. Input and recurrent masks are shared across time steps.
type masks struct {
	input, recurrent, dense []float64
}

func newMask(n int, rate float64, rng *rand.Rand) []float64 {
	m := make([]float64, n)
	keep := 1 - rate
	for i := range m {
		if rate == 0 || rng.Float64() < keep {
			m[i] = 1 / keep
		}
	}
	return m
}

func (n *network) sampleMasks(cfg Config, rng *rand.Rand) *masks {
	return &masks{
		input:     newMask(n.emb, cfg.Dropout, rng),
		recurrent: newMask(n.units, cfg.RecurrentDropout, rng),
		dense:     newMask(n.hidden, cfg.DenseDropout, rng),
	}
}

// trace records the activations of one forward pass for backpropagation.
type trace struct {
	ids   []int
	x     [][]float64 // embedded (and masked) input per step
	hPrev [][]float64 // masked previous hidden state per step
	cPrev [][]float64
	gates [][]float64 // activated i, f, g, o per step
	tanhC [][]float64
	h     []float64
	a1    []float64
	d     []float64
	probs []float64
}

// forward runs the network over one padded sequence. With mk == nil no
// dropout is applied; with tr != nil activations are recorded.
func (n *network) forward(ids []int, mk *masks, tr *trace) []float64 {
	u := n.units
	h := make([]float64, u)
	c := make([]float64, u)
	z := make([]float64, 4*u)

	if tr != nil {
		tr.ids = ids
	}
	for _, id := range ids {
		if id < 0 || id >= n.vocab {
			id = 1
		}
		x := make([]float64, n.emb)
		copy(x, n.embedding.w[id*n.emb:(id+1)*n.emb])
		hm := h
		if mk != nil {
			mulInPlace(x, mk.input)
			hm = make([]float64, u)
			copy(hm, h)
			mulInPlace(hm, mk.recurrent)
		}

		copy(z, n.b.w)
		matVecAdd(z, n.wx.w, 4*u, n.emb, x)
		matVecAdd(z, n.wh.w, 4*u, u, hm)

		gates := make([]float64, 4*u)
		nc := make([]float64, u)
		nh := make([]float64, u)
		tc := make([]float64, u)
		for j := 0; j < u; j++ {
			ig := sigmoid(z[j])
			fg := sigmoid(z[u+j])
			gg := math.Tanh(z[2*u+j])
			og := sigmoid(z[3*u+j])
			gates[j], gates[u+j], gates[2*u+j], gates[3*u+j] = ig, fg, gg, og
			nc[j] = fg*c[j] + ig*gg
			tc[j] = math.Tanh(nc[j])
			nh[j] = og * tc[j]
		}

		if tr != nil {
			tr.x = append(tr.x, x)
			tr.hPrev = append(tr.hPrev, hm)
			tr.cPrev = append(tr.cPrev, c)
			tr.gates = append(tr.gates, gates)
			tr.tanhC = append(tr.tanhC, tc)
		}
		h, c = nh, nc
	}

	a1 := make([]float64, n.hidden)
	copy(a1, n.b1.w)
	matVecAdd(a1, n.w1.w, n.hidden, u, h)
	d := make([]float64, n.hidden)
	for j, v := range a1 {
		if v > 0 {
			d[j] = v
		}
	}
	if mk != nil {
		mulInPlace(d, mk.dense)
	}

	logits := make([]float64, n.classes)
	copy(logits, n.b2.w)
	matVecAdd(logits, n.w2.w, n.classes, n.hidden, d)
	probs := softmax(logits)

	if tr != nil {
		tr.h, tr.a1, tr.d, tr.probs = h, a1, d, probs
	}
	return probs
}

// backward accumulates the cross-entropy gradient of one recorded pass into
// the parameter gradients.
func (n *network) backward(tr *trace, mk *masks, label int) {
	u := n.units

	dLogits := make([]float64, n.classes)
	copy(dLogits, tr.probs)
	dLogits[label] -= 1

	outerAdd(n.w2.g, n.classes, n.hidden, dLogits, tr.d)
	addInPlace(n.b2.g, dLogits)

	dd := make([]float64, n.hidden)
	matTVecAdd(dd, n.w2.w, n.classes, n.hidden, dLogits)
	mulInPlace(dd, mk.dense)
	for j, v := range tr.a1 {
		if v <= 0 {
			dd[j] = 0
		}
	}
	outerAdd(n.w1.g, n.hidden, u, dd, tr.h)
	addInPlace(n.b1.g, dd)

	dh := make([]float64, u)
	matTVecAdd(dh, n.w1.w, n.hidden, u, dd)
	dc := make([]float64, u)
	dz := make([]float64, 4*u)

	for t := len(tr.ids) - 1; t >= 0; t-- {
		gates := tr.gates[t]
		tc := tr.tanhC[t]
		cPrev := tr.cPrev[t]
		for j := 0; j < u; j++ {
			ig, fg, gg, og := gates[j], gates[u+j], gates[2*u+j], gates[3*u+j]
			dOut := dh[j] * tc[j]
			dc[j] += dh[j] * og * (1 - tc[j]*tc[j])
			dz[j] = dc[j] * gg * ig * (1 - ig)
			dz[u+j] = dc[j] * cPrev[j] * fg * (1 - fg)
			dz[2*u+j] = dc[j] * ig * (1 - gg*gg)
			dz[3*u+j] = dOut * og * (1 - og)
			dc[j] *= fg
		}

		outerAdd(n.wx.g, 4*u, n.emb, dz, tr.x[t])
		outerAdd(n.wh.g, 4*u, u, dz, tr.hPrev[t])
		addInPlace(n.b.g, dz)

		id := tr.ids[t]
		if id < 0 || id >= n.vocab {
			id = 1
		}
		dx := make([]float64, n.emb)
		matTVecAdd(dx, n.wx.w, 4*u, n.emb, dz)
		mulInPlace(dx, mk.input)
		addInPlace(n.embedding.g[id*n.emb:(id+1)*n.emb], dx)

		for j := range dh {
			dh[j] = 0
		}
		matTVecAdd(dh, n.wh.w, 4*u, u, dz)
		mulInPlace(dh, mk.recurrent)
	}
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func softmax(logits []float64) []float64 {
	out := make([]float64, len(logits))
	copy(out, logits)
	floats.AddConst(-floats.Max(out), out)
	for i, v := range out {
		out[i] = math.Exp(v)
	}
	floats.Scale(1/floats.Sum(out), out)
	return out
}

func general(w []float64, rows, cols int) blas64.General {
	return blas64.General{Rows: rows, Cols: cols, Stride: cols, Data: w}
}

func vector(x []float64) blas64.Vector {
	return blas64.Vector{N: len(x), Inc: 1, Data: x}
}

// matVecAdd computes out += W x for a rows x cols matrix W.
func matVecAdd(out, w []float64, rows, cols int, x []float64) {
	blas64.Gemv(blas.NoTrans, 1, general(w, rows, cols), vector(x[:cols]), 1, vector(out[:rows]))
}

// matTVecAdd computes out += W^T y for a rows x cols matrix W.
func matTVecAdd(out, w []float64, rows, cols int, y []float64) {
	blas64.Gemv(blas.Trans, 1, general(w, rows, cols), vector(y[:rows]), 1, vector(out[:cols]))
}

// outerAdd computes g += y x^T for a rows x cols gradient.
func outerAdd(g []float64, rows, cols int, y, x []float64) {
	blas64.Ger(1, vector(y[:rows]), vector(x[:cols]), general(g, rows, cols))
}

func mulInPlace(a, b []float64) {
	floats.Mul(a, b)
}

func addInPlace(a, b []float64) {
	floats.Add(a, b)
}
