package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/hitoshi/minishop/internal/model"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation_Postgres(t *testing.T) {
	err := fmt.Errorf("insert: %w", &pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})
	assert.True(t, isUniqueViolation(err))

	assert.False(t, isUniqueViolation(&pq.Error{Code: "23503"}), "foreign key violation is not a duplicate")
}

func TestIsUniqueViolation_OtherErrors(t *testing.T) {
	assert.False(t, isUniqueViolation(errors.New("connection refused")))
	assert.False(t, isUniqueViolation(nil))
}

func TestProfileAssignments_FixedOrder(t *testing.T) {
	avatar := "https://example.com/a.png"
	shop := "shop"
	cols, args := profileAssignments(model.ProfileUpdate{ShopInfo: &shop, AvatarURL: &avatar})

	assert.Equal(t, []string{"avatar_url", "shop_info"}, cols)
	assert.Equal(t, []any{avatar, shop}, args)
}

func TestProfileAssignments_Empty(t *testing.T) {
	cols, args := profileAssignments(model.ProfileUpdate{})
	assert.Empty(t, cols)
	assert.Empty(t, args)
}
