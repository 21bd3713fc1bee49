package entities

// DefaultAccountID is the account every install has; it can never be deleted.
const DefaultAccountID = "default"

// Account is a named settings profile (Business tier).
type Account struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt int64     `json:"createdAt"` // epoch ms
	Settings  *Settings `json:"settings"`
}

// AccountSummary is the list view of an account, without its settings
type AccountSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt int64  `json:"createdAt"`
	Active    bool   `json:"active"`
}

// ApiKey is a Business-tier API key. The key is stored as issued.
type ApiKey struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Key       string `json:"key"`
	CreatedAt int64  `json:"createdAt"`
	LastUsed  *int64 `json:"lastUsed"`
}

// Masked returns a copy safe to list: only the prefix and last 4 chars of
// the key are kept.
func (k ApiKey) Masked() ApiKey {
	out := k
	if len(k.Key) > 16 {
		out.Key = k.Key[:12] + "…" + k.Key[len(k.Key)-4:]
	}
	return out
}
