package reuseembed

import "math"

// HybridImageEncoder is a deterministic, model-free icon embedder used
// when no vision tower is configured. It pools each channel
// into a coarse grid of averages, the image analog of the text
// fallback's n-gram/hash composite (generalized from
// core/vectorgraphdb/vamana/embedder.HybridLocalEmbedder's hashing
// approach, retargeted at pixel grids instead of character n-grams).
type HybridImageEncoder struct {
	dimension int
}

// NewHybridImageEncoder builds a fallback encoder of the given
// dimension.
func NewHybridImageEncoder(dimension int) *HybridImageEncoder {
	return &HybridImageEncoder{dimension: dimension}
}

func (h *HybridImageEncoder) Dimension() int { return h.dimension }

// EmbedTensor pools the CHW tensor by averaging over a square grid of
// cells per channel (3 × gridSide² features, at most h.dimension; any
// remaining entries stay zero), then L2-normalizes.
func (h *HybridImageEncoder) EmbedTensor(t *Tensor) []float32 {
	vec := make([]float32, h.dimension)
	cellsPerChannel := h.dimension / 3
	if cellsPerChannel == 0 {
		cellsPerChannel = 1
	}

	gridSide := int(math.Sqrt(float64(cellsPerChannel)))
	if gridSide == 0 {
		gridSide = 1
	}
	cellSize := IconSize / gridSide
	if cellSize == 0 {
		cellSize = 1
	}

	idx := 0
	for c := 0; c < 3 && idx < h.dimension; c++ {
		for gy := 0; gy < gridSide && idx < h.dimension; gy++ {
			for gx := 0; gx < gridSide && idx < h.dimension; gx++ {
				vec[idx] = cellAverage(t, c, gx*cellSize, gy*cellSize, cellSize)
				idx++
			}
		}
	}

	normalizeVec(vec)
	return vec
}

func cellAverage(t *Tensor, channel, x0, y0, size int) float32 {
	var sum float32
	var n int
	for y := y0; y < y0+size && y < IconSize; y++ {
		for x := x0; x < x0+size && x < IconSize; x++ {
			sum += t.Data[channel][y][x]
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float32(n)
}
