package textproc

import (
	"sort"
	"strings"
)

const (
	// PadID fills the front of sequences shorter than the model length.
	PadID = 0
	// OOVID stands for every word the vocabulary does not know.
	OOVID = 1
	// OOVToken is the vocabulary entry reserved for OOVID.
	OOVToken = "<OOV>"

	firstWordID = 2
)

// Vocabulary maps cleaned words to integer ids. It is immutable once built.
//
// Words are ranked by descending corpus frequency, ties broken by first
// occurrence, and numbered from 2. Only ids below MaxWords are emitted by
// Encode; lower-ranked words encode as OOVID.
type Vocabulary struct {
	index    map[string]int
	words    []string
	maxWords int
}

// Fit builds a vocabulary from cleaned texts. maxWords caps the ids that
// Encode may produce (padding and OOV included); a value below 2 is raised to
// 2 so that the OOV id stays addressable.
func Fit(corpus []string, maxWords int) *Vocabulary {
	if maxWords < firstWordID {
		maxWords = firstWordID
	}

	counts := make(map[string]int)
	var order []string
	for _, text := range corpus {
		for _, w := range strings.Fields(text) {
			if _, seen := counts[w]; !seen {
				order = append(order, w)
			}
			counts[w]++
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	v := &Vocabulary{
		index:    make(map[string]int, len(order)+1),
		words:    make([]string, 0, len(order)+2),
		maxWords: maxWords,
	}
	v.words = append(v.words, "", OOVToken)
	v.index[OOVToken] = OOVID
	for i, w := range order {
		v.index[w] = firstWordID + i
		v.words = append(v.words, w)
	}
	return v
}

// Encode maps each word of a cleaned text to its id, preserving order.
func (v *Vocabulary) Encode(text string) []int {
	words := strings.Fields(text)
	ids := make([]int, 0, len(words))
	for _, w := range words {
		ids = append(ids, v.ID(w))
	}
	return ids
}

// ID returns the id Encode would emit for a single word.
func (v *Vocabulary) ID(word string) int {
	id, ok := v.index[word]
	if !ok || id >= v.maxWords {
		return OOVID
	}
	return id
}

// Word returns the word behind id, or "" for padding and unknown ids.
func (v *Vocabulary) Word(id int) string {
	if id <= PadID || id >= len(v.words) {
		return ""
	}
	return v.words[id]
}

// Len is the number of fitted words, excluding padding and OOV.
func (v *Vocabulary) Len() int {
	return len(v.words) - firstWordID
}

// MaxWords is the exclusive upper bound of emitted ids, and therefore the
// number of rows an embedding over this vocabulary needs.
func (v *Vocabulary) MaxWords() int {
	return v.maxWords
}
