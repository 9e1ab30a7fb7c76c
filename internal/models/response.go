package models

type ErrorResponse struct {
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

type MessageResponse struct {
	Success bool   `json:"success,omitempty"`
	Message string `json:"message"`
}

type UploadResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Data    []ImageRecord `json:"data"`
}

type ImageListData struct {
	Total int           `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
	Data  []ImageRecord `json:"data"`
}

type ImageListResponse struct {
	Status  string        `json:"status"`
	Message *string       `json:"message"`
	Data    ImageListData `json:"data"`
}

type ProcessAcceptedResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	ImageID string `json:"image_id,omitempty"`
	JobID   string `json:"job_id,omitempty"`
}

type ProjectListData struct {
	Total int       `json:"total"`
	Page  int       `json:"page"`
	Limit int       `json:"limit"`
	Data  []Project `json:"data"`
}

type ProjectListResponse struct {
	Data ProjectListData `json:"data"`
}

type TagListData struct {
	Tags       []Tag      `json:"tags"`
	Pagination Pagination `json:"pagination"`
}

type TagListResponse struct {
	Success bool        `json:"success"`
	Status  string      `json:"status"`
	Data    TagListData `json:"data"`
}

type CreateTagResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    Tag    `json:"data"`
}

type AccessToken struct {
	AccessToken string `json:"access_token"`
}

type LoginResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	User    User        `json:"user"`
	Token   AccessToken `json:"token"`
}

type GoogleLoginResponse struct {
	User        User   `json:"user"`
	AccessToken string `json:"access_token"`
}

type ProfileResponse struct {
	User Profile `json:"user"`
}

type AvatarUploadResponse struct {
	AvatarURL string `json:"avatarUrl,omitempty"`
	URL       string `json:"url,omitempty"`
	PublicURL string `json:"publicUrl,omitempty"`
}

// Location returns the first URL field the backend populated.
func (r AvatarUploadResponse) Location() string {
	switch {
	case r.AvatarURL != "":
		return r.AvatarURL
	case r.URL != "":
		return r.URL
	default:
		return r.PublicURL
	}
}

type HealthResponse struct {
	Status string `json:"status"`
}

type StatusResponse struct {
	Connection   string `json:"connection"`
	PendingJobs  int    `json:"pending_jobs"`
	GalleryTotal int    `json:"gallery_total"`
	GalleryPage  int    `json:"gallery_page"`
	Loading      bool   `json:"loading"`
	LastError    string `json:"last_error,omitempty"`
}

type JobListResponse struct {
	Jobs []Job `json:"jobs"`
}

type GalleryResponse struct {
	Mode      string        `json:"mode"`
	Items     []ImageRecord `json:"items"`
	Total     int           `json:"total"`
	Page      int           `json:"page"`
	Limit     int           `json:"limit"`
	HasMore   bool          `json:"has_more"`
	Loading   bool          `json:"loading"`
	LastError string        `json:"last_error,omitempty"`
}
