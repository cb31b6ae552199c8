package adapters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"quote_backend/internal/feature/quotes/domain/entity"
	"quote_backend/internal/feature/quotes/usecase"
	symbolentity "quote_backend/internal/feature/symbols/domain/entity"
	"quote_backend/internal/shared/failure"
)

// PriceSampleModel is the gorm row of the price_samples table.
// price は桁落ちしないよう文字列で保存します。
type PriceSampleModel struct {
	ID         uint            `gorm:"primaryKey"`
	SymbolID   uint            `gorm:"not null;uniqueIndex:sample_sym_time,priority:1"`
	CapturedAt time.Time       `gorm:"not null;uniqueIndex:sample_sym_time,priority:2"`
	Price      decimal.Decimal `gorm:"type:varchar(64);not null"`
	CreatedAt  time.Time       `gorm:"autoCreateTime"`
}

func (PriceSampleModel) TableName() string {
	return "price_samples"
}

func (m PriceSampleModel) toEntity() entity.PriceSample {
	return entity.PriceSample{
		ID:         m.ID,
		SymbolID:   m.SymbolID,
		Price:      m.Price,
		CapturedAt: m.CapturedAt.UTC(),
	}
}

type sampleGorm struct {
	db *gorm.DB
}

var _ usecase.SampleRepository = (*sampleGorm)(nil)

// NewSampleRepository creates the gorm-backed price sample store.
func NewSampleRepository(db *gorm.DB) *sampleGorm {
	return &sampleGorm{db: db}
}

// Append は1トランザクションで追記します。
// コミット後に結果を返すため、呼び出し側は戻り値を受け取った時点で通知してよいです。
func (r *sampleGorm) Append(ctx context.Context, symbolID uint, price decimal.Decimal, capturedAt time.Time) (entity.AppendResult, error) {
	capturedAt = capturedAt.UTC()
	var out entity.AppendResult

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&symbolentity.Symbol{}).Where("id = ?", symbolID).Count(&n).Error; err != nil {
			return failure.Storage(failure.ReasonWrite, "check symbol", err)
		}
		if n == 0 {
			return failure.Storage(failure.ReasonUnknownReference,
				fmt.Sprintf("symbol id %d", symbolID), usecase.ErrSymbolNotFound)
		}

		prev, hasPrev, err := latestIn(tx, symbolID)
		if err != nil {
			return failure.Storage(failure.ReasonWrite, "read previous sample", err)
		}
		if hasPrev {
			p := prev.toEntity()
			out.Previous = &p
			if capturedAt.Before(prev.CapturedAt) {
				return failure.Storage(failure.ReasonOutOfOrder,
					fmt.Sprintf("symbol id %d: %s < %s", symbolID, capturedAt.Format(time.RFC3339Nano), prev.CapturedAt.UTC().Format(time.RFC3339Nano)),
					usecase.ErrOutOfOrder)
			}
		}

		m := PriceSampleModel{SymbolID: symbolID, CapturedAt: capturedAt, Price: price}
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "symbol_id"}, {Name: "captured_at"}},
			DoNothing: true,
		}).Create(&m)
		if res.Error != nil {
			return failure.Storage(failure.ReasonWrite, "insert sample", res.Error)
		}
		if res.RowsAffected > 0 {
			out.Sample = m.toEntity()
			out.Inserted = true
			return nil
		}

		// 同じバケットに既に行がある
		var existing PriceSampleModel
		if err := tx.Where("symbol_id = ? AND captured_at = ?", symbolID, capturedAt).Take(&existing).Error; err != nil {
			return failure.Storage(failure.ReasonWrite, "read existing sample", err)
		}
		out.Sample = existing.toEntity()
		return nil
	})
	if err != nil {
		return entity.AppendResult{}, err
	}
	return out, nil
}

// Latest は captured_at が最大のサンプルを返します。
func (r *sampleGorm) Latest(ctx context.Context, symbolID uint) (entity.PriceSample, bool, error) {
	m, ok, err := latestIn(r.db.WithContext(ctx), symbolID)
	if err != nil || !ok {
		return entity.PriceSample{}, ok, err
	}
	return m.toEntity(), true, nil
}

// LatestAll は銘柄ごとの最新サンプルを1回のクエリで返します。
func (r *sampleGorm) LatestAll(ctx context.Context, symbolIDs []uint) (map[uint]entity.PriceSample, error) {
	out := make(map[uint]entity.PriceSample, len(symbolIDs))
	if len(symbolIDs) == 0 {
		return out, nil
	}

	db := r.db.WithContext(ctx)
	newest := db.Model(&PriceSampleModel{}).
		Select("symbol_id, MAX(captured_at) AS captured_at").
		Where("symbol_id IN ?", symbolIDs).
		Group("symbol_id")

	var rows []PriceSampleModel
	err := db.Table("price_samples AS p").
		Select("p.*").
		Joins("JOIN (?) AS m ON p.symbol_id = m.symbol_id AND p.captured_at = m.captured_at", newest).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, m := range rows {
		out[m.SymbolID] = m.toEntity()
	}
	return out, nil
}

// History は [from, to] のサンプルを古い順に返します。
func (r *sampleGorm) History(ctx context.Context, symbolID uint, from, to time.Time) ([]entity.PriceSample, error) {
	var rows []PriceSampleModel
	err := r.db.WithContext(ctx).
		Where("symbol_id = ? AND captured_at >= ? AND captured_at <= ?", symbolID, from.UTC(), to.UTC()).
		Order("captured_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]entity.PriceSample, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.toEntity())
	}
	return out, nil
}

func latestIn(db *gorm.DB, symbolID uint) (PriceSampleModel, bool, error) {
	var m PriceSampleModel
	err := db.Where("symbol_id = ?", symbolID).Order("captured_at DESC").Limit(1).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return PriceSampleModel{}, false, nil
	}
	if err != nil {
		return PriceSampleModel{}, false, err
	}
	return m, true, nil
}
