package user

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/hitoshi/minishop/internal/model"
	"github.com/hitoshi/minishop/internal/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- モック ---

type mockUserRepo struct {
	findByIDFn      func(ctx context.Context, id int64) (*model.User, error)
	updateProfileFn func(ctx context.Context, id int64, update model.ProfileUpdate) (*model.User, error)
	deleteByIDFn    func(ctx context.Context, id int64) error
}

func (m *mockUserRepo) ResolveOrCreate(context.Context, string, model.Profile) (*model.User, bool, error) {
	return nil, false, errors.New("profile service must not create users")
}

func (m *mockUserRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByOpenID(context.Context, string) (*model.User, error) {
	return nil, nil
}

func (m *mockUserRepo) UpdateProfile(ctx context.Context, id int64, update model.ProfileUpdate) (*model.User, error) {
	return m.updateProfileFn(ctx, id, update)
}

func (m *mockUserRepo) DeleteByID(ctx context.Context, id int64) error {
	return m.deleteByIDFn(ctx, id)
}

func (m *mockUserRepo) Ping(context.Context) error {
	return nil
}

func strPtr(s string) *string { return &s }

// --- GetProfile ---

func TestGetProfile_Found(t *testing.T) {
	repo := &mockUserRepo{findByIDFn: func(_ context.Context, id int64) (*model.User, error) {
		return &model.User{ID: id, OpenID: "wx_u1"}, nil
	}}
	svc := NewService(repo, security.NewProfileSanitizer())

	user, err := svc.GetProfile(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "wx_u1", user.OpenID)
}

func TestGetProfile_NotFound(t *testing.T) {
	svc := NewService(&mockUserRepo{}, security.NewProfileSanitizer())

	_, err := svc.GetProfile(context.Background(), 99)

	var apiErr *model.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, model.ErrCodeUserNotFound, apiErr.Code)
}

func TestGetProfile_RepoError(t *testing.T) {
	repo := &mockUserRepo{findByIDFn: func(context.Context, int64) (*model.User, error) {
		return nil, fmt.Errorf("connection refused")
	}}
	svc := NewService(repo, security.NewProfileSanitizer())

	_, err := svc.GetProfile(context.Background(), 1)
	assert.Error(t, err)
}

// --- UpdateProfile ---

func TestUpdateProfile_NoFields(t *testing.T) {
	svc := NewService(&mockUserRepo{}, security.NewProfileSanitizer())

	_, err := svc.UpdateProfile(context.Background(), 1, model.ProfileUpdate{})

	var apiErr *model.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, model.ErrCodeNoFieldsToUpdate, apiErr.Code)
}

func TestUpdateProfile_SanitizesTextFields(t *testing.T) {
	var got model.ProfileUpdate
	repo := &mockUserRepo{updateProfileFn: func(_ context.Context, id int64, update model.ProfileUpdate) (*model.User, error) {
		assert.Equal(t, int64(5), id)
		got = update
		return &model.User{ID: id}, nil
	}}
	svc := NewService(repo, security.NewProfileSanitizer())

	_, err := svc.UpdateProfile(context.Background(), 5, model.ProfileUpdate{
		Nickname: strPtr("<script>x</script>alice"),
		ShopInfo: strPtr("<b>fresh</b> fruit"),
	})
	require.NoError(t, err)

	require.NotNil(t, got.Nickname)
	assert.Equal(t, "alice", *got.Nickname)
	require.NotNil(t, got.ShopInfo)
	assert.Equal(t, "fresh fruit", *got.ShopInfo)
	assert.Nil(t, got.Phone, "absent fields stay untouched")
	assert.Nil(t, got.AvatarURL)
}

func TestUpdateProfile_KeepsSpecialCharactersVerbatim(t *testing.T) {
	var got model.ProfileUpdate
	repo := &mockUserRepo{updateProfileFn: func(_ context.Context, id int64, update model.ProfileUpdate) (*model.User, error) {
		got = update
		return &model.User{ID: id}, nil
	}}
	svc := NewService(repo, security.NewProfileSanitizer())

	_, err := svc.UpdateProfile(context.Background(), 1, model.ProfileUpdate{
		Nickname: strPtr("Tom & Jerry"),
		Phone:    strPtr("+86 138'0000"),
		ShopInfo: strPtr(`五金店 "老王" 3<5`),
	})
	require.NoError(t, err)

	assert.Equal(t, "Tom & Jerry", *got.Nickname)
	assert.Equal(t, "+86 138'0000", *got.Phone)
	assert.Equal(t, `五金店 "老王" 3<5`, *got.ShopInfo)
}

func TestUpdateProfile_InvalidAvatarURL(t *testing.T) {
	svc := NewService(&mockUserRepo{}, security.NewProfileSanitizer())

	_, err := svc.UpdateProfile(context.Background(), 1, model.ProfileUpdate{AvatarURL: strPtr("javascript:alert(1)")})

	var apiErr *model.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, model.ErrCodeInvalidRequest, apiErr.Code)
}

func TestUpdateProfile_UserNotFound(t *testing.T) {
	repo := &mockUserRepo{updateProfileFn: func(context.Context, int64, model.ProfileUpdate) (*model.User, error) {
		return nil, fmt.Errorf("update user 9: %w", model.ErrUserNotFound)
	}}
	svc := NewService(repo, security.NewProfileSanitizer())

	_, err := svc.UpdateProfile(context.Background(), 9, model.ProfileUpdate{Phone: strPtr("1")})

	var apiErr *model.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, model.ErrCodeUserNotFound, apiErr.Code)
}

// --- Withdraw ---

func TestWithdraw_Success(t *testing.T) {
	var deleted int64
	repo := &mockUserRepo{deleteByIDFn: func(_ context.Context, id int64) error {
		deleted = id
		return nil
	}}
	svc := NewService(repo, security.NewProfileSanitizer())

	require.NoError(t, svc.Withdraw(context.Background(), 3))
	assert.Equal(t, int64(3), deleted)
}

func TestWithdraw_UserNotFound(t *testing.T) {
	repo := &mockUserRepo{deleteByIDFn: func(context.Context, int64) error {
		return model.ErrUserNotFound
	}}
	svc := NewService(repo, security.NewProfileSanitizer())

	err := svc.Withdraw(context.Background(), 3)

	var apiErr *model.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, model.ErrCodeUserNotFound, apiErr.Code)
}

func TestWithdraw_RepoError(t *testing.T) {
	repo := &mockUserRepo{deleteByIDFn: func(context.Context, int64) error {
		return errors.New("disk full")
	}}
	svc := NewService(repo, security.NewProfileSanitizer())

	err := svc.Withdraw(context.Background(), 3)
	require.Error(t, err)

	var apiErr *model.APIError
	assert.False(t, errors.As(err, &apiErr))
}
