package entities

// User is a popup operator. Namespace isolates the user's storage, the way a
// tenant schema isolates bot data.
type User struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	Role         string `json:"role"`
	Namespace    string `json:"namespace"`
	IsActive     bool   `json:"is_active"`
	CreatedAt    int64  `json:"created_at"`
}
