package repository

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/amishardev/orbi-sub001/internal/apperr"
	"github.com/amishardev/orbi-sub001/internal/db"
	"github.com/amishardev/orbi-sub001/internal/recommend"
)

// RecommendationRepository persists the last computed suggestion list
// per user. Lists are written and read wholesale; there are no partial
// updates and no history.
type RecommendationRepository struct {
	db *gorm.DB
}

// NewRecommendationRepository creates a new repository bound to the given DB connection.
func NewRecommendationRepository(database *gorm.DB) *RecommendationRepository {
	return &RecommendationRepository{db: database}
}

// Put overwrites the user's full recommendation list and its UpdatedAt
// atomically (single-row upsert).
func (r *RecommendationRepository) Put(ctx context.Context, userID uint64, list *recommend.List) error {
	return r.put(r.db.WithContext(ctx), userID, list)
}

// PutBatch writes several lists in one transaction. The batch job uses
// it to respect the store's max-operations-per-commit constraint.
func (r *RecommendationRepository) PutBatch(ctx context.Context, lists map[uint64]*recommend.List) error {
	if len(lists) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for userID, list := range lists {
			if err := r.put(tx, userID, list); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *RecommendationRepository) put(tx *gorm.DB, userID uint64, list *recommend.List) error {
	items := list.Items
	if items == nil {
		items = []recommend.ScoredRecommendation{}
	}
	blob, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal recommendations for %d: %w", userID, err)
	}

	row := db.RecommendationList{
		UserID:    userID,
		Items:     blob,
		UpdatedAt: list.UpdatedAt,
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"items", "updated_at"}),
	}).Create(&row).Error
}

// Get returns the user's last stored list.
//
// Behavior:
//   - No stored list → apperr.ErrNotFound; the serving layer treats it
//     as "no suggestions", not as a failure.
func (r *RecommendationRepository) Get(ctx context.Context, userID uint64) (*recommend.List, error) {
	var row db.RecommendationList
	if err := r.db.WithContext(ctx).First(&row, "user_id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("recommendations for %d: %w", userID, apperr.ErrNotFound)
		}
		return nil, err
	}

	items := []recommend.ScoredRecommendation{}
	if len(row.Items) > 0 {
		if err := json.Unmarshal(row.Items, &items); err != nil {
			return nil, fmt.Errorf("unmarshal recommendations for %d: %w", userID, err)
		}
	}
	if items == nil {
		items = []recommend.ScoredRecommendation{}
	}
	return &recommend.List{UpdatedAt: row.UpdatedAt, Items: items}, nil
}
