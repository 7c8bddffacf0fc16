package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"shop/internal/apperr"
	"shop/internal/config"
	"shop/internal/domain/model"
	"shop/internal/repository"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

// accesstokenの有効期限
const accessTokenTTL = 15 * time.Minute

type UserDTO struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

type TokenDTO struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

type AuthRegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthRegisterResponse struct {
	User UserDTO `json:"user"`
}

type AuthLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthLoginResponse struct {
	User  UserDTO  `json:"user"`
	Token TokenDTO `json:"token"`
}

// 会員登録とログインだけの薄い認証。
// 本体のカート/チェックアウトはJWTが運ぶ {userID, email} を信用する。
type AuthUsecase struct {
	cfg   config.Config
	users repository.UserRepository
}

func NewAuthUsecase(cfg config.Config, users repository.UserRepository) *AuthUsecase {
	return &AuthUsecase{cfg: cfg, users: users}
}

func (u *AuthUsecase) Register(ctx context.Context, req AuthRegisterRequest) (*AuthRegisterResponse, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperr.Validation("invalid email")
	}
	if len(req.Password) < 8 {
		return nil, apperr.Validation("password too short")
	}

	existing, err := u.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if existing != nil {
		return nil, apperr.Validation("email already registered")
	}

	//パスワードは必ずハッシュ化して保存（平文保存しない）
	pwHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Email:        email,
		PasswordHash: string(pwHash),
	}
	if err := u.users.Create(ctx, user); err != nil {
		//unique違反（並行登録）もここに落ちる
		return nil, apperr.Validation("email already registered")
	}

	return &AuthRegisterResponse{
		User: UserDTO{ID: user.ID, Email: user.Email},
	}, nil
}

func (u *AuthUsecase) Login(ctx context.Context, req AuthLoginRequest) (*AuthLoginResponse, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		return nil, apperr.Validation("email and password are required")
	}

	user, err := u.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, apperr.Authorization("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, apperr.Authorization("invalid credentials")
	}

	token, err := u.issueAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	return &AuthLoginResponse{
		User: UserDTO{ID: user.ID, Email: user.Email},
		Token: TokenDTO{
			AccessToken: token,
			ExpiresIn:   int(accessTokenTTL.Seconds()),
		},
	}, nil
}

// subとemailを積んだHS256のアクセストークン
func (u *AuthUsecase) issueAccessToken(user *model.User) (string, error) {
	now := time.Now()

	claims := jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"iat":   now.Unix(),
		"exp":   now.Add(accessTokenTTL).Unix(),
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString([]byte(u.cfg.JWTSecret))
}
