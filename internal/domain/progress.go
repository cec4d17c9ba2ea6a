package domain

// Progress is the live state of a poster job, reported in percent steps.
type Progress struct {
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Status  string `json:"status"`
}

// Progress messages reported while a poster is generated.
const (
	ProgressDecoding  = "Decoding parameters..."
	ProgressFetching  = "Fetching map data..."
	ProgressRendering = "Rendering map..."
	ProgressSaving    = "Saving file..."
	ProgressCached    = "Restored from cache"
	ProgressPending   = "Pending..."
	ProgressCompleted = "Completed"
)

// NewProgress builds a progress record out of 100.
func NewProgress(current int, status string) Progress {
	return Progress{Current: current, Total: 100, Status: status}
}

// PosterResult is the outcome of a successful generation job.
type PosterResult struct {
	Success  bool   `json:"success"`
	FileURL  string `json:"file_url"`
	FilePath string `json:"file_path"`
	Filename string `json:"filename"`
	Cached   bool   `json:"cached"`
}

// ProgressFunc receives progress updates while a poster is generated.
type ProgressFunc func(current int, status string)

// NopProgress discards progress updates.
func NopProgress(int, string) {}
