package repository

import (
	"assessment_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type ClientRepository struct {
	DB *gorm.DB
}

func NewClientRepository(db *gorm.DB) *ClientRepository {
	return &ClientRepository{DB: db}
}

func (r *ClientRepository) FindByID(id uint) (*model.Client, error) {
	var client model.Client
	err := r.DB.First(&client, id).Error
	return &client, err
}

func (r *ClientRepository) UpdateLastSeen(clientID uint) error {
	now := time.Now()
	return r.DB.Model(&model.Client{}).Where("id = ?", clientID).Update("last_seen_at", &now).Error
}
