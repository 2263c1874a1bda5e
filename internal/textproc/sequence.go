package textproc

// Pad returns a sequence of exactly maxLen ids. Longer inputs keep their last
// maxLen elements; shorter ones are left-padded with PadID. The input slice
// is never modified.
func Pad(seq []int, maxLen int) []int {
	if maxLen <= 0 {
		return []int{}
	}
	out := make([]int, maxLen)
	if len(seq) >= maxLen {
		copy(out, seq[len(seq)-maxLen:])
		return out
	}
	copy(out[maxLen-len(seq):], seq)
	return out
}

// PadBatch pads every sequence to maxLen, yielding a rectangular batch.
func PadBatch(seqs [][]int, maxLen int) [][]int {
	out := make([][]int, len(seqs))
	for i, s := range seqs {
		out[i] = Pad(s, maxLen)
	}
	return out
}

// Pipeline bundles a fitted vocabulary with the model sequence length.
type Pipeline struct {
	Vocab  *Vocabulary
	MaxLen int
}

// Encode cleans raw text and returns its padded id sequence.
func (p Pipeline) Encode(raw string) []int {
	return Pad(p.Vocab.Encode(Normalize(raw)), p.MaxLen)
}

// EncodeBatch encodes many raw texts at once.
func (p Pipeline) EncodeBatch(raws []string) [][]int {
	out := make([][]int, len(raws))
	for i, r := range raws {
		out[i] = p.Encode(r)
	}
	return out
}
