package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"telehealth-server/internal/models"
)

// GormDirectory resolves patients and doctors from the users table.
type GormDirectory struct {
	db *gorm.DB
}

// NewGormDirectory wraps an open GORM connection.
func NewGormDirectory(db *gorm.DB) *GormDirectory {
	return &GormDirectory{db: db}
}

// FindParty loads the user with the given id and role. Inactive users are
// returned as-is; callers decide what inactivity means for them.
func (d *GormDirectory) FindParty(ctx context.Context, id string, role models.Role) (*models.Party, error) {
	var user models.User
	if err := d.db.WithContext(ctx).Where("id = ? AND role = ?", id, role).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find %s: %w", role, err)
	}
	party := user.Party()
	return &party, nil
}

// ActiveDoctors lists every doctor accepting bookings, ordered by name.
func (d *GormDirectory) ActiveDoctors(ctx context.Context) ([]models.DoctorSummary, error) {
	var doctors []models.User
	err := d.db.WithContext(ctx).
		Where("role = ? AND is_active = ?", models.RoleDoctor, true).
		Order("full_name asc").
		Find(&doctors).Error
	if err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}

	out := make([]models.DoctorSummary, len(doctors))
	for i, doc := range doctors {
		out[i] = models.DoctorSummary{ID: doc.ID, FullName: doc.FullName, ProfilePicture: doc.ProfilePicture}
	}
	return out, nil
}
