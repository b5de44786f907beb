package faceapi

// Result is the remote verdict for one frame.
type Result struct {
	Detected   bool    `json:"detected"`
	Similarity float64 `json:"similarity"` // 0..1
	Verified   bool    `json:"verified"`
}

// Percent returns Similarity scaled to 0..100.
func (r Result) Percent() float64 { return r.Similarity * 100 }

type imageRequest struct {
	Image string `json:"image"`
}

type adminPreviewRequest struct {
	UserID string `json:"userId"`
	Image  string `json:"image"`
}

type adminLoginRequest struct {
	UserID   string `json:"userId"`
	Password string `json:"password"`
	Image    string `json:"image,omitempty"`
}

// DetectResponse is returned by the public detection endpoint. The bounding
// box is present only when a face was found.
type DetectResponse struct {
	Detected bool `json:"detected"`
	X        int  `json:"x,omitempty"`
	Y        int  `json:"y,omitempty"`
	W        int  `json:"w,omitempty"`
	H        int  `json:"h,omitempty"`
}

type previewResponse struct {
	Detected   *bool   `json:"detected,omitempty"`
	Similarity float64 `json:"similarity"`
	Verified   bool    `json:"verified"`
}

// CheckInResponse describes a recorded access event.
type CheckInResponse struct {
	Success    bool    `json:"success"`
	UserID     string  `json:"userId,omitempty"`
	Name       string  `json:"name,omitempty"`
	Similarity float64 `json:"similarity,omitempty"`
	Message    string  `json:"message,omitempty"`
}

// LoginResponse carries the admin token issued on login.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
}

// Embedding is one stored face embedding of the current user.
type Embedding struct {
	ID        string `json:"id"`
	CreatedAt string `json:"createdAt,omitempty"`
}

type messageResponse struct {
	Message string `json:"message,omitempty"`
}
