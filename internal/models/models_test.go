package models_test

import (
	"testing"

	"oncoai/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestFeatureColumns(t *testing.T) {
	assert.Len(t, models.FeatureColumns, models.FeatureCount)
	assert.Equal(t, "B2M_expression", models.FeatureColumns[0])
	assert.Equal(t, "B2M_scna", models.FeatureColumns[1])
	assert.Equal(t, "SERPING1_scna", models.FeatureColumns[models.FeatureCount-1])

	seen := make(map[string]bool)
	for _, c := range models.FeatureColumns {
		assert.False(t, seen[c], "duplicate column %s", c)
		seen[c] = true
	}
}

func TestUserPublic(t *testing.T) {
	hash := "$2a$10$abc"
	u := &models.User{Username: "ana", FullName: "Ana Ruiz", HashedPassword: &hash}

	p := u.Public()
	assert.Equal(t, "ana", p.Username)
	assert.Equal(t, "Ana Ruiz", p.Name)
	assert.Nil(t, p.Email)

	u.Email = "ana@example.com"
	p = u.Public()
	if assert.NotNil(t, p.Email) {
		assert.Equal(t, "ana@example.com", *p.Email)
	}
}
