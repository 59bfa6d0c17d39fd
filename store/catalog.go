// store/catalog.go — read-only catalog lookups backing the engine.
package store

import (
	"context"
	"errors"

	"merchant-onboarding-system/models"

	"gorm.io/gorm"
)

type Catalog struct {
	DB *gorm.DB
}

func NewCatalog(db *gorm.DB) *Catalog {
	return &Catalog{DB: db}
}

func (s *Catalog) EventByName(ctx context.Context, name string) (*models.CatalogEvent, error) {
	var event models.CatalogEvent
	err := s.DB.WithContext(ctx).Where("name = ?", name).First(&event).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (s *Catalog) ActiveTasksByEvent(ctx context.Context, eventID string) ([]models.Task, error) {
	var tasks []models.Task
	err := s.DB.WithContext(ctx).
		Where("event_id = ? AND is_active = ?", eventID, true).
		Preload("Mission").
		Preload("Mission.Game").
		Order("order_index ASC").
		Find(&tasks).Error
	return tasks, err
}

func (s *Catalog) TaskByID(ctx context.Context, id string) (*models.Task, error) {
	var task models.Task
	err := s.DB.WithContext(ctx).Preload("Mission").First(&task, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *Catalog) TasksForMission(ctx context.Context, missionID string) ([]models.Task, error) {
	var tasks []models.Task
	err := s.DB.WithContext(ctx).
		Where("mission_id = ?", missionID).
		Order("order_index ASC").
		Find(&tasks).Error
	return tasks, err
}

func (s *Catalog) MissionByID(ctx context.Context, id string) (*models.Mission, error) {
	var mission models.Mission
	err := s.DB.WithContext(ctx).Preload("Game").First(&mission, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &mission, nil
}

func (s *Catalog) RewardsForMission(ctx context.Context, missionID string) ([]models.Reward, error) {
	var rewards []models.Reward
	err := s.DB.WithContext(ctx).
		Where("mission_id = ? AND is_active = ?", missionID, true).
		Preload("RewardType").
		Find(&rewards).Error
	return rewards, err
}
