package hypothesis

import "encoding/json"

// searchResponse is the body of GET /api/search.
type searchResponse struct {
	Total int             `json:"total"`
	Rows  []apiAnnotation `json:"rows"`
}

type apiAnnotation struct {
	ID          string         `json:"id,omitempty"`
	Created     string         `json:"created,omitempty"`
	Updated     string         `json:"updated,omitempty"`
	User        string         `json:"user,omitempty"`
	URI         string         `json:"uri"`
	Text        string         `json:"text"`
	Tags        []string       `json:"tags"`
	Group       string         `json:"group,omitempty"`
	Target      []apiTarget    `json:"target,omitempty"`
	Document    *apiDocument   `json:"document,omitempty"`
	Permissions *apiPermission `json:"permissions,omitempty"`
}

type apiTarget struct {
	Source   string          `json:"source"`
	Selector json.RawMessage `json:"selector,omitempty"`
}

type apiDocument struct {
	Title []string `json:"title,omitempty"`
}

type apiPermission struct {
	Read   []string `json:"read"`
	Update []string `json:"update,omitempty"`
	Delete []string `json:"delete,omitempty"`
}

type apiSelector struct {
	Type  string `json:"type"`
	Exact string `json:"exact,omitempty"`
}

// profileResponse is the body of GET /api/profile. UserID is null for
// anonymous requests.
type profileResponse struct {
	UserID *string `json:"userid"`
}
