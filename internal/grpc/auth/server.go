package auth

import (
	"context"

	"vidtube/internal/domain/models"
	"vidtube/internal/services/auth"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type Auth interface {
	Register(
		ctx context.Context,
		in auth.RegisterInput,
	) (models.PublicUser, error)
	Login(
		ctx context.Context,
		in auth.LoginInput,
	) (models.PublicUser, models.TokenPair, error)
	Refresh(
		ctx context.Context,
		refreshToken string,
	) (models.TokenPair, error)
	Logout(
		ctx context.Context,
		userID string,
	) error
	Authenticate(
		ctx context.Context,
		accessToken string,
	) (models.PublicUser, error)
}

type serverAPI struct {
	auth Auth
}

func Register(gRPC *grpc.Server, auth Auth) {
	gRPC.RegisterService(&ServiceDesc, &serverAPI{auth: auth})
}

func (s *serverAPI) Register(
	ctx context.Context,
	req *RegisterRequest,
) (*RegisterResponse, error) {
	user, err := s.auth.Register(ctx, auth.RegisterInput{
		FullName:   req.FullName,
		Email:      req.Email,
		Username:   req.Username,
		Password:   req.Password,
		Avatar:     req.Avatar,
		CoverImage: req.CoverImage,
	})
	if err != nil {
		return nil, toStatus(err)
	}

	return &RegisterResponse{User: user}, nil
}

func (s *serverAPI) Login(
	ctx context.Context,
	req *LoginRequest,
) (*LoginResponse, error) {
	user, pair, err := s.auth.Login(ctx, auth.LoginInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return nil, toStatus(err)
	}

	return &LoginResponse{User: user, Tokens: pair}, nil
}

func (s *serverAPI) Refresh(
	ctx context.Context,
	req *RefreshRequest,
) (*RefreshResponse, error) {
	pair, err := s.auth.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return nil, toStatus(err)
	}

	return &RefreshResponse{Tokens: pair}, nil
}

func (s *serverAPI) Logout(
	ctx context.Context,
	req *LogoutRequest,
) (*LogoutResponse, error) {
	user, err := s.auth.Authenticate(ctx, req.AccessToken)
	if err != nil {
		return nil, toStatus(err)
	}

	if err := s.auth.Logout(ctx, user.ID); err != nil {
		return nil, toStatus(err)
	}

	return &LogoutResponse{}, nil
}

func (s *serverAPI) Authenticate(
	ctx context.Context,
	req *AuthenticateRequest,
) (*AuthenticateResponse, error) {
	user, err := s.auth.Authenticate(ctx, req.AccessToken)
	if err != nil {
		return nil, toStatus(err)
	}

	return &AuthenticateResponse{User: user}, nil
}

func toStatus(err error) error {
	var code codes.Code

	switch auth.KindOf(err) {
	case auth.KindValidation:
		code = codes.InvalidArgument
	case auth.KindConflict:
		code = codes.AlreadyExists
	case auth.KindNotFound:
		code = codes.NotFound
	case auth.KindUnauthorized:
		code = codes.Unauthenticated
	default:
		code = codes.Internal
	}

	return status.Error(code, auth.Message(err))
}
