package models

type ProcessRequest struct {
	ImageID string   `json:"image_id"`
	Prompt  string   `json:"prompt"`
	Tags    []string `json:"tags,omitempty"`
}

type CreateProjectRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

type UpdateProjectRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

type CreateTagRequest struct {
	Name string `json:"name"`
}

type RegisterRequest struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	Phone       string `json:"phone"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type GoogleTokenRequest struct {
	Credential string `json:"credential"`
	Provider   string `json:"provider"`
}

type ValidateTokenRequest struct {
	Token string `json:"token"`
}

type UpdateProfileRequest struct {
	Name        *string `json:"name,omitempty"`
	DisplayName *string `json:"displayName,omitempty"`
	Email       *string `json:"email,omitempty"`
	Phone       *string `json:"phone,omitempty"`
}

type UpdateAvatarRequest struct {
	AvatarURL string `json:"avatarUrl"`
}
