package imagepkg

type ItemStatus string

const (
	StatusPainted ItemStatus = "painted"
	StatusSkipped ItemStatus = "skipped"
)

// ItemResult records what happened to one cell image or one overlay.
type ItemResult struct {
	Index  int        `json:"index"`
	Status ItemStatus `json:"status"`
	Reason string     `json:"reason,omitempty"`
}

// Report collects per-item outcomes of a render. Cells is aligned with the
// images that had a cell to go to; Overlays with the banner's overlays.
type Report struct {
	Cells    []ItemResult `json:"cells"`
	Overlays []ItemResult `json:"overlays"`
}

func (r *Report) Skipped() int {
	n := 0
	for _, items := range [][]ItemResult{r.Cells, r.Overlays} {
		for _, it := range items {
			if it.Status == StatusSkipped {
				n++
			}
		}
	}
	return n
}

func painted(i int) ItemResult {
	return ItemResult{Index: i, Status: StatusPainted}
}

func skipped(i int, reason string) ItemResult {
	return ItemResult{Index: i, Status: StatusSkipped, Reason: reason}
}
