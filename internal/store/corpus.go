package store

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"vishing-sim/backend/internal/grounding"
)

// ReplaceGroundingExamples atomically swaps the stored corpus for examples,
// keeping their order.
func (d *Database) ReplaceGroundingExamples(examples []grounding.Example) error {
	if d == nil {
		return errors.New("database is nil")
	}
	rows := make([]GroundingExample, 0, len(examples))
	for _, ex := range examples {
		key := strings.ToLower(strings.TrimSpace(ex.Domain))
		if key == "" {
			continue
		}
		rows = append(rows, GroundingExample{
			Domain:        strings.TrimSpace(ex.Domain),
			DomainKey:     key,
			Role:          ex.Role,
			RequestPhrase: ex.RequestPhrase,
			Rating:        ex.Rating,
		})
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&GroundingExample{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		// Batch insert to avoid SQLite variable limit (999)
		const batchSize = 150
		return tx.CreateInBatches(rows, batchSize).Error
	})
}

// CountGroundingExamples returns the number of stored corpus rows.
func (d *Database) CountGroundingExamples() (int64, error) {
	var count int64
	if err := d.gorm.Model(&GroundingExample{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Examples implements grounding.Source over the stored corpus.
func (d *Database) Examples(ctx context.Context, domain string, limit int) ([]grounding.Example, error) {
	query := d.gorm.WithContext(ctx).
		Where("domain_key = ?", strings.ToLower(strings.TrimSpace(domain))).
		Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []GroundingExample
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return toExamples(rows), nil
}

// AllGroundingExamples returns the whole corpus in insertion order.
func (d *Database) AllGroundingExamples(ctx context.Context) ([]grounding.Example, error) {
	var rows []GroundingExample
	if err := d.gorm.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return toExamples(rows), nil
}

func toExamples(rows []GroundingExample) []grounding.Example {
	out := make([]grounding.Example, 0, len(rows))
	for _, row := range rows {
		out = append(out, grounding.Example{
			Domain:        row.Domain,
			Role:          row.Role,
			RequestPhrase: row.RequestPhrase,
			Rating:        row.Rating,
		})
	}
	return out
}
