package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telehealth-server/internal/models"
)

func TestGormDirectory_FindParty(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	dir := NewGormDirectory(db)

	doctor := models.User{FullName: "Grace Hopper", Email: "grace@clinic.test", Password: "x", Role: models.RoleDoctor, IsActive: true}
	require.NoError(t, db.Create(&doctor).Error)

	party, err := dir.FindParty(ctx, doctor.ID, models.RoleDoctor)
	require.NoError(t, err)
	assert.Equal(t, "Grace Hopper", party.DisplayName)
	assert.Equal(t, "grace@clinic.test", party.Email)
	assert.True(t, party.IsActive)

	_, err = dir.FindParty(ctx, doctor.ID, models.RolePatient)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormDirectory_ActiveDoctors(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	dir := NewGormDirectory(db)

	users := []models.User{
		{FullName: "Zed Doctor", Email: "z@clinic.test", Password: "x", Role: models.RoleDoctor, IsActive: true},
		{FullName: "Ann Doctor", Email: "a@clinic.test", Password: "x", Role: models.RoleDoctor, IsActive: true},
		{FullName: "Retired Doctor", Email: "r@clinic.test", Password: "x", Role: models.RoleDoctor, IsActive: true},
		{FullName: "Pat Patient", Email: "p@clinic.test", Password: "x", Role: models.RolePatient, IsActive: true},
	}
	require.NoError(t, db.Create(&users).Error)
	// is_active has a column default, so flip it after insert
	require.NoError(t, db.Model(&models.User{}).Where("email = ?", "r@clinic.test").Update("is_active", false).Error)

	doctors, err := dir.ActiveDoctors(ctx)
	require.NoError(t, err)
	require.Len(t, doctors, 2)
	assert.Equal(t, "Ann Doctor", doctors[0].FullName)
	assert.Equal(t, "Zed Doctor", doctors[1].FullName)
}
