package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/coldpipe/coldpipe/internal/domain"
)

// TemplateRepository resolves template documents.
type TemplateRepository struct {
	db *mongo.Database
}

func NewTemplateRepository(db *mongo.Database) *TemplateRepository {
	return &TemplateRepository{db: db}
}

func (r *TemplateRepository) GetTemplate(ctx context.Context, templateID string) (*domain.Template, error) {
	var template domain.Template
	err := r.db.Collection(colTemplates).FindOne(ctx, idFilter(templateID)).Decode(&template)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get template %s: %w", templateID, err)
	}
	return &template, nil
}
