package domain

// User is the public account representation returned by the API.
// The password hash never leaves the service.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// LoginRequest is the login payload.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterRequest is the account-creation payload.
type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse is returned by login and register.
type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// GenerateRequest is the image-generation payload.
type GenerateRequest struct {
	Prompt string `json:"prompt"`
}

// GenerateResult reports the outcome of one generation. Saved and
// DisplayVerified are soft outcomes: a false value comes with a warning, not
// a failed request, and the image URL is still usable for the session.
type GenerateResult struct {
	ImageURL        string   `json:"image_url"`
	Saved           bool     `json:"saved"`
	DisplayVerified bool     `json:"display_verified"`
	Warnings        []string `json:"warnings,omitempty"`
}

// GalleryItem is one gallery entry as rendered by the API.
type GalleryItem struct {
	ID         int64  `json:"id"`
	ImageLink  string `json:"image_link"`
	PromptUsed string `json:"prompt_used"`
	CreatedAt  string `json:"created_at"`
	// CreatedAtDisplay is the humanized timestamp, e.g. "January 02, 2006
	// 03:04 PM". Falls back to CreatedAt verbatim when unparsable.
	CreatedAtDisplay string `json:"created_at_display"`
}
