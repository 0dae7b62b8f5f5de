// internal/workers/maintenance/cleanup-empty-records/models.go
package cleanupemptyrecords

type Input struct {
	DryRun bool `json:"dryRun"`
}

type Output struct {
	DryRun  bool             `json:"dryRun"`
	ByTable map[string]int64 `json:"byTable"`
	Total   int64            `json:"total"`
}
