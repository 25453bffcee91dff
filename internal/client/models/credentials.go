package models

// Credentials identify the hypothes.is account to sync with.
type Credentials struct {
	Username string
	APIToken string
}

func (c Credentials) Valid() bool {
	return c.Username != "" && c.APIToken != ""
}
