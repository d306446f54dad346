package pipeline

import "github.com/On-Jun9/ShutterOrient/pkg/types"

type ProgressCallback func(update ProgressUpdate)

type ProgressUpdate struct {
	Type       string            `json:"type"`
	RunID      string            `json:"run_id,omitempty"`
	Message    string            `json:"message,omitempty"`
	Current    int               `json:"current,omitempty"`
	Total      int               `json:"total,omitempty"`
	Filename   string            `json:"filename,omitempty"`
	Resolution *types.Resolution `json:"resolution,omitempty"`
	Summary    *types.RunSummary `json:"summary,omitempty"`
	Error      string            `json:"error,omitempty"`
}
