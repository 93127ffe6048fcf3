package domain

// CodeKey names one dimension of the signal code vector.
type CodeKey string

// Signal code dimensions. Sentiment lies in [-1,1], every other dimension in [0,1].
const (
	CodeSentiment   CodeKey = "sentiment"
	CodeUrgency     CodeKey = "urgency"
	CodeMarket      CodeKey = "market"
	CodeMacro       CodeKey = "macro"
	CodeGeopolitics CodeKey = "geopolitics"
	CodeCompany     CodeKey = "company"
	CodeCommodities CodeKey = "commodities"
	CodeFX          CodeKey = "fx"
	CodeRates       CodeKey = "rates"
	CodeCrypto      CodeKey = "crypto"
	CodeUsefulness  CodeKey = "usefulness"
	CodeAd          CodeKey = "ad"
)

// CodeKeys lists the dimensions in their canonical order.
var CodeKeys = []CodeKey{
	CodeSentiment,
	CodeUrgency,
	CodeMarket,
	CodeMacro,
	CodeGeopolitics,
	CodeCompany,
	CodeCommodities,
	CodeFX,
	CodeRates,
	CodeCrypto,
	CodeUsefulness,
	CodeAd,
}

// CodeVector is a fixed-dimension named scalar signal summary attached to an item.
type CodeVector map[CodeKey]float64

// NewCodeVector returns a vector with every dimension set to zero.
func NewCodeVector() CodeVector {
	v := make(CodeVector, len(CodeKeys))
	for _, k := range CodeKeys {
		v[k] = 0
	}

	return v
}

// Get returns the value of a dimension, zero when absent.
func (v CodeVector) Get(k CodeKey) float64 {
	if v == nil {
		return 0
	}

	return v[k]
}

// Bounds returns the allowed range of a dimension.
func (k CodeKey) Bounds() (lo, hi float64) {
	if k == CodeSentiment {
		return -1, 1
	}

	return 0, 1
}

// ToMap converts the vector into a string-keyed map suitable for JSON storage.
func (v CodeVector) ToMap() map[string]float64 {
	out := make(map[string]float64, len(v))
	for k, val := range v {
		out[string(k)] = val
	}

	return out
}
