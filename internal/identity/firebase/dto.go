package firebase

// passwordRequest is the body of accounts:signInWithPassword and accounts:signUp
type passwordRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

// profileRequest is the body of accounts:update
type profileRequest struct {
	IDToken           string `json:"idToken"`
	DisplayName       string `json:"displayName,omitempty"`
	PhotoURL          string `json:"photoUrl,omitempty"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

// oobRequest is the body of accounts:sendOobCode
type oobRequest struct {
	RequestType string `json:"requestType"`
	Email       string `json:"email"`
}

// accountResponse is returned by sign-in, sign-up and profile updates.
// Token fields are absent from profile updates that don't rotate tokens.
type accountResponse struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
	PhotoURL     string `json:"photoUrl"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"` // seconds, as a string
}

// tokenResponse is returned by the secure token endpoint (snake_case)
type tokenResponse struct {
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    string `json:"expires_in"`
	UserID       string `json:"user_id"`
}

// errorResponse is the error envelope shared by both endpoints
type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"` // e.g. "EMAIL_EXISTS", "WEAK_PASSWORD : Password should be..."
	} `json:"error"`
}
