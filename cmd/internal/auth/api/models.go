package authapi

import (
	"time"

	"streamhub/cmd/account"
)

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// accountResponse is the outward shape of an account. It never carries the
// password hash or the stored refresh token.
type accountResponse struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	FullName      string    `json:"fullName"`
	AvatarURL     string    `json:"avatar"`
	CoverImageURL string    `json:"coverImage,omitempty"`
	WatchHistory  []string  `json:"watchHistory"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type loginResponse struct {
	Account      accountResponse `json:"account"`
	AccessToken  string          `json:"accessToken"`
	RefreshToken string          `json:"refreshToken"`
}

type refreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func toAccountResponse(acct account.Account) accountResponse {
	history := acct.WatchHistory
	if history == nil {
		history = []string{}
	}
	return accountResponse{
		ID:            acct.ID,
		Username:      acct.Username,
		Email:         acct.Email,
		FullName:      acct.FullName,
		AvatarURL:     acct.AvatarURL,
		CoverImageURL: acct.CoverImageURL,
		WatchHistory:  history,
		CreatedAt:     acct.CreatedAt,
		UpdatedAt:     acct.UpdatedAt,
	}
}
