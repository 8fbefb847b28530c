package dto

type SubmitJobRequest struct {
	URL     string `json:"url" binding:"required"`
	DestDir string `json:"dest_dir"`
}

type SubmitJobResponse struct {
	JobID  string `json:"job_id"`
	Kind   string `json:"kind"`
	Status string `json:"status"`
}

type ListJobsRequest struct {
	Status string `form:"status"`
	Limit  int    `form:"limit"`
}

type ListJobsResponse struct {
	Jobs []JobDTO `json:"jobs"`
}

type JobDTO struct {
	JobID      string `json:"job_id"`
	Kind       string `json:"kind"`
	Status     string `json:"status"`
	Progress   int    `json:"progress"`
	Message    string `json:"message"`
	ResultPath string `json:"result_path,omitempty"`
	Error      string `json:"error,omitempty"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}
