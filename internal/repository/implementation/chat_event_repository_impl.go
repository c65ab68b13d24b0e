package implementation

import (
	"context"

	"ai-therapist-be/internal/entity"
	"ai-therapist-be/internal/mapper"
	"ai-therapist-be/internal/model"
	"ai-therapist-be/internal/repository/contract"
	"ai-therapist-be/internal/repository/specification"

	"gorm.io/gorm"
)

type ChatEventRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChatMapper
}

func NewChatEventRepository(db *gorm.DB) contract.ChatEventRepository {
	return &ChatEventRepositoryImpl{
		db:     db,
		mapper: mapper.NewChatMapper(),
	}
}

func (r *ChatEventRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *ChatEventRepositoryImpl) Create(ctx context.Context, event *entity.ChatEvent) error {
	m := r.mapper.ChatEventToModel(event)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*event = *r.mapper.ChatEventToEntity(m)
	return nil
}

func (r *ChatEventRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatEvent, error) {
	var models []*model.ChatEvent
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.ChatEvent, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ChatEventToEntity(m)
	}
	return entities, nil
}

func (r *ChatEventRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.ChatEvent{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
