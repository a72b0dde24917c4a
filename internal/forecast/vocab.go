package forecast

// Vocabulary is the closed category domain for one region. It is built
// once per run and shared between training and inference so both encode
// the categorical feature identically.
type Vocabulary struct {
	names []string
	index map[string]int
}

// NewVocabulary creates a vocabulary over the given category names,
// preserving their order.
func NewVocabulary(names []string) *Vocabulary {
	v := &Vocabulary{index: make(map[string]int, len(names))}
	for _, name := range names {
		if _, ok := v.index[name]; ok {
			continue
		}
		v.index[name] = len(v.names)
		v.names = append(v.names, name)
	}
	return v
}

// Len returns the number of categories in the vocabulary.
func (v *Vocabulary) Len() int {
	return len(v.names)
}

// Names returns the category names in vocabulary order.
func (v *Vocabulary) Names() []string {
	return v.names
}

// Encode appends a one-hot encoding of category to the numeric features.
// An unknown category encodes as all zeros.
func (v *Vocabulary) Encode(features []float64, category string) []float64 {
	encoded := make([]float64, len(features), len(features)+len(v.names))
	copy(encoded, features)
	oneHot := make([]float64, len(v.names))
	if i, ok := v.index[category]; ok {
		oneHot[i] = 1
	}
	return append(encoded, oneHot...)
}
