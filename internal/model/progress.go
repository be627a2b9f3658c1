package model

// 上传进度阶段。
const (
	ProgressPreparing = "preparing"
	ProgressUploading = "uploading"
	ProgressCompleted = "completed"
	ProgressError     = "error"
)

// UploadProgress 是推送给 UI 的单条上传进度事件。
type UploadProgress struct {
	Key     string  `json:"key"`
	Stage   string  `json:"stage"`
	Percent float64 `json:"percent"`
	Loaded  int64   `json:"loaded"`
	Total   int64   `json:"total"`
	Message string  `json:"message,omitempty"`
}
