package dao

import (
	"context"

	"scout/scout/sources/psql/models"
	"scout/scout/utils/logging"

	"gorm.io/gorm"
)

// WebKnowledgeDAO is the postgres-backed knowledge store of the crawler.
type WebKnowledgeDAO struct {
	DB *gorm.DB
}

func NewWebKnowledgeDAO(db *gorm.DB) *WebKnowledgeDAO {
	return &WebKnowledgeDAO{DB: db}
}

// StoreResult saves one summary. The session id is taken from the trace id on ctx.
func (dao *WebKnowledgeDAO) StoreResult(ctx context.Context, intent, result, sourceURL string) error {
	wk := models.WebKnowledge{
		SessionID:  logging.TraceID(ctx),
		UserIntent: intent,
		Content:    result,
		SourceURL:  sourceURL,
	}
	return dao.DB.WithContext(ctx).Create(&wk).Error
}

func (dao *WebKnowledgeDAO) ListByIntent(ctx context.Context, intent string) ([]models.WebKnowledge, error) {
	var out []models.WebKnowledge
	err := dao.DB.WithContext(ctx).Where("user_intent = ?", intent).Order("created_at asc").Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (dao *WebKnowledgeDAO) ListBySession(ctx context.Context, sessionID string) ([]models.WebKnowledge, error) {
	var out []models.WebKnowledge
	err := dao.DB.WithContext(ctx).Where("session_id = ?", sessionID).Order("created_at asc").Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (dao *WebKnowledgeDAO) DeleteBySession(ctx context.Context, sessionID string) (int64, error) {
	res := dao.DB.WithContext(ctx).Where("session_id = ?", sessionID).Delete(&models.WebKnowledge{})
	return res.RowsAffected, res.Error
}
