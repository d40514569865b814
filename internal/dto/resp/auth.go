package resp

type UserInfo struct {
	Username string `json:"username"`
	Roles    string `json:"roles"`
}

type ClientInfo struct {
	ClientID string `json:"client_id"`
	Scopes   string `json:"scopes"`
}

type TokenResp struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token,omitempty"`
	ExpiresIn    int64       `json:"expires_in"` // seconds
	User         *UserInfo   `json:"user,omitempty"`
	Client       *ClientInfo `json:"client,omitempty"`
}

type ProfileResp struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Roles  string `json:"roles,omitempty"`
	Scopes string `json:"scopes,omitempty"`
}
