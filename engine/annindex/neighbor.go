package annindex

type neighbor struct {
	label    int64
	distance float32
}

// neighbors is a heap with the worst candidate on top.
type neighbors struct {
	items  []neighbor
	metric Metric
}

// worse orders by distance, breaking ties towards the lower label.
func (h *neighbors) worse(a, b neighbor) bool {
	if a.distance != b.distance {
		return h.metric.worse(a.distance, b.distance)
	}
	return a.label > b.label
}

func (h *neighbors) Len() int           { return len(h.items) }
func (h *neighbors) Less(i, j int) bool { return h.worse(h.items[i], h.items[j]) }
func (h *neighbors) Swap(i, j int)      { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *neighbors) Push(x any) {
	h.items = append(h.items, x.(neighbor))
}

func (h *neighbors) Pop() any {
	old := h.items
	n := len(old)
	x := old[n-1]
	h.items = old[:n-1]
	return x
}
