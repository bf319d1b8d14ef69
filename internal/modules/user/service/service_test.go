package user

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"anoa.com/folio/internal/modules/user/dto"
	"anoa.com/folio/internal/modules/user/repository"
	"anoa.com/folio/internal/testutil"
	"anoa.com/folio/pkg/apperror"
	commonDto "anoa.com/folio/pkg/dto"
	"anoa.com/folio/pkg/storage"
	"anoa.com/folio/pkg/token"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeStorage struct {
	uploaded []string
	deleted  []string
	failWith error
}

func (f *fakeStorage) UploadImage(_ context.Context, r io.Reader, fileName string) (string, error) {
	if f.failWith != nil {
		return "", f.failWith
	}
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	url := "https://res.cloudinary.com/demo/image/upload/v1/folio_avatars/" + fileName
	f.uploaded = append(f.uploaded, url)
	return url, nil
}

func (f *fakeStorage) DeleteImage(_ context.Context, fileURL string) error {
	f.deleted = append(f.deleted, fileURL)
	return nil
}

func (f *fakeStorage) Owns(fileURL string) bool {
	return strings.Contains(fileURL, "cloudinary.com")
}

func newTestService(t *testing.T, imageStorage storage.ImageStorage) (AuthService, *token.Manager, repository.UserRepository) {
	t.Helper()
	repo := repository.NewUserRepository(testutil.NewDB(t))
	tokens := token.NewManager("test-secret", time.Hour)
	svc := NewAuthService(repo, tokens, imageStorage)
	svc.(*authService).hashCost = bcrypt.MinCost
	return svc, tokens, repo
}

func registerInput(username, email string) dto.RegisterInput {
	return dto.RegisterInput{
		Username:  username,
		Email:     email,
		Password:  "supersecret1",
		Birthdate: "1995-04-12",
	}
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	svc, tokens, repo := newTestService(t, nil)

	res, err := svc.Register(ctx, registerInput("alice01", " Alice@Example.com "))
	require.NoError(t, err)

	identity, err := tokens.Verify(res.Token)
	require.NoError(t, err)

	u, err := repo.FindByID(ctx, identity.UserID)
	require.NoError(t, err)
	assert.Equal(t, "alice01", u.Username)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.NotEqual(t, "supersecret1", u.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("supersecret1")))
	require.NotNil(t, u.AvatarURL)
	assert.Equal(t, gravatarURL("alice@example.com"), *u.AvatarURL)
	assert.Equal(t, 1995, u.Birthdate.Year())
}

func TestRegisterDuplicate(t *testing.T) {
	ctx := context.Background()
	svc, _, repo := newTestService(t, nil)

	_, err := svc.Register(ctx, registerInput("alice01", "alice@example.com"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		input dto.RegisterInput
	}{
		{"same username", registerInput("alice01", "other@example.com")},
		{"same email", registerInput("bobby01", "alice@example.com")},
		{"same email different case", registerInput("bobby01", "ALICE@example.com")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperror.ErrConflict)
			assert.Equal(t, http.StatusBadRequest, apperror.MapErrorToStatus(err))
			assert.Equal(t, "Already existing user with these credentials", err.Error())

			count, err := repo.Count(ctx)
			require.NoError(t, err)
			assert.EqualValues(t, 1, count)
		})
	}
}

func TestRegisterBadBirthdate(t *testing.T) {
	svc, _, _ := newTestService(t, nil)

	input := registerInput("alice01", "alice@example.com")
	input.Birthdate = "12/04/1995"
	_, err := svc.Register(context.Background(), input)
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	svc, tokens, _ := newTestService(t, nil)

	res, err := svc.Register(ctx, registerInput("alice01", "alice@example.com"))
	require.NoError(t, err)
	registered, err := tokens.Verify(res.Token)
	require.NoError(t, err)

	tests := []struct {
		name    string
		input   dto.LoginInput
		wantErr bool
	}{
		{"by username", dto.LoginInput{Username: "alice01", Password: "supersecret1"}, false},
		{"by email", dto.LoginInput{Email: "Alice@Example.com", Password: "supersecret1"}, false},
		{"wrong password", dto.LoginInput{Username: "alice01", Password: "nope-nope-nope"}, true},
		{"unknown user", dto.LoginInput{Username: "nobody99", Password: "supersecret1"}, true},
		{"no identifier", dto.LoginInput{Password: "supersecret1"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.Login(ctx, tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidCredentials)
				assert.Equal(t, http.StatusBadRequest, apperror.MapErrorToStatus(err))
				return
			}
			require.NoError(t, err)
			identity, err := tokens.Verify(res.Token)
			require.NoError(t, err)
			assert.Equal(t, registered.UserID, identity.UserID)
		})
	}
}

func TestGetCurrentUser(t *testing.T) {
	ctx := context.Background()
	svc, tokens, _ := newTestService(t, nil)

	res, err := svc.Register(ctx, registerInput("alice01", "alice@example.com"))
	require.NoError(t, err)
	identity, err := tokens.Verify(res.Token)
	require.NoError(t, err)

	u, err := svc.GetCurrentUser(ctx, identity.UserID)
	require.NoError(t, err)
	assert.Empty(t, u.PasswordHash)
	assert.Equal(t, "alice01", u.Username)

	_, err = svc.GetCurrentUser(ctx, uuid.New())
	require.ErrorIs(t, err, apperror.ErrUnauthorized)
	assert.Equal(t, http.StatusUnauthorized, apperror.MapErrorToStatus(err))
}

func TestUploadAvatar(t *testing.T) {
	ctx := context.Background()
	images := &fakeStorage{}
	svc, tokens, repo := newTestService(t, images)

	res, err := svc.Register(ctx, registerInput("alice01", "alice@example.com"))
	require.NoError(t, err)
	identity, err := tokens.Verify(res.Token)
	require.NoError(t, err)

	u, err := svc.UploadAvatar(ctx, identity.UserID, commonDto.AvatarFile{Reader: strings.NewReader("img"), FileName: "one.png"})
	require.NoError(t, err)
	require.NotNil(t, u.AvatarURL)
	assert.Equal(t, images.uploaded[0], *u.AvatarURL)
	// gravatar is not ours to delete
	assert.Empty(t, images.deleted)

	_, err = svc.UploadAvatar(ctx, identity.UserID, commonDto.AvatarFile{Reader: strings.NewReader("img"), FileName: "two.png"})
	require.NoError(t, err)
	assert.Equal(t, []string{images.uploaded[0]}, images.deleted)

	stored, err := repo.FindByID(ctx, identity.UserID)
	require.NoError(t, err)
	assert.Equal(t, images.uploaded[1], *stored.AvatarURL)

	images.failWith = errors.New("upstream down")
	_, err = svc.UploadAvatar(ctx, identity.UserID, commonDto.AvatarFile{Reader: strings.NewReader("img"), FileName: "three.png"})
	assert.Equal(t, http.StatusBadRequest, apperror.MapErrorToStatus(err))
}

func TestUploadAvatarWithoutStorage(t *testing.T) {
	svc, _, _ := newTestService(t, nil)

	_, err := svc.UploadAvatar(context.Background(), uuid.New(), commonDto.AvatarFile{Reader: strings.NewReader("img"), FileName: "a.png"})
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrNotConfigured)
	assert.Equal(t, http.StatusServiceUnavailable, apperror.MapErrorToStatus(err))
}

func TestDeleteAccount(t *testing.T) {
	ctx := context.Background()
	images := &fakeStorage{}
	svc, tokens, repo := newTestService(t, images)

	res, err := svc.Register(ctx, registerInput("alice01", "alice@example.com"))
	require.NoError(t, err)
	identity, err := tokens.Verify(res.Token)
	require.NoError(t, err)

	_, err = svc.UploadAvatar(ctx, identity.UserID, commonDto.AvatarFile{Reader: strings.NewReader("img"), FileName: "a.png"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteAccount(ctx, identity.UserID))
	_, err = repo.FindByID(ctx, identity.UserID)
	assert.Error(t, err)
	assert.Len(t, images.deleted, 1)

	// already gone
	assert.NoError(t, svc.DeleteAccount(ctx, identity.UserID))
}

func TestGravatarURL(t *testing.T) {
	assert.Equal(t,
		"https://www.gravatar.com/avatar/0bc83cb571cd1c50ba6f3e8a78ef1346?s=200&r=pg&d=mm",
		gravatarURL(" MyEmailAddress@example.com "),
	)
}
