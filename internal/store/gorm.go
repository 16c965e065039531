package store

import (
	"context"
	"fmt"
	"sync"

	"webreplay/backend/internal/models"

	"gorm.io/gorm"
)

// Gorm is the database-backed Store. Mutations reload the snapshot so
// the change feed always carries the persisted state, not what the
// caller thinks it wrote.
type Gorm struct {
	notifier
	db   *gorm.DB
	mu   sync.Mutex
	last Snapshot
}

func NewGorm(db *gorm.DB) (*Gorm, error) {
	g := &Gorm{db: db}
	snap, err := g.loadSnapshot()
	if err != nil {
		return nil, err
	}
	g.last = snap
	return g, nil
}

func (g *Gorm) loadSnapshot() (Snapshot, error) {
	var records []models.AutomationRecord
	if err := g.db.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to load automation records: %w", err)
	}
	snap := make(Snapshot, len(records))
	for _, r := range records {
		snap[r.UID] = r
	}
	return snap, nil
}

func (g *Gorm) Load(ctx context.Context) (Snapshot, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	snap, err := g.loadSnapshot()
	if err != nil {
		return nil, err
	}
	g.last = snap
	return snap.Clone(), nil
}

func (g *Gorm) Save(ctx context.Context, rec models.AutomationRecord) error {
	g.mu.Lock()
	old := g.last.Clone()

	var existing models.AutomationRecord
	err := g.db.Where("uid = ?", rec.UID).First(&existing).Error
	switch {
	case err == gorm.ErrRecordNotFound:
		err = g.db.Create(&rec).Error
	case err == nil:
		rec.ID = existing.ID
		rec.CreatedAt = existing.CreatedAt
		err = g.db.Save(&rec).Error
	}
	if err != nil {
		g.mu.Unlock()
		return fmt.Errorf("failed to save record %s: %w", rec.UID, err)
	}

	cur, err := g.loadSnapshot()
	if err != nil {
		g.mu.Unlock()
		return err
	}
	g.last = cur
	g.mu.Unlock()
	g.emit(old, cur.Clone())
	return nil
}

func (g *Gorm) Delete(ctx context.Context, uid string) error {
	g.mu.Lock()
	old := g.last.Clone()
	if err := g.db.Where("uid = ?", uid).Delete(&models.AutomationRecord{}).Error; err != nil {
		g.mu.Unlock()
		return fmt.Errorf("failed to delete record %s: %w", uid, err)
	}
	cur, err := g.loadSnapshot()
	if err != nil {
		g.mu.Unlock()
		return err
	}
	g.last = cur
	g.mu.Unlock()
	g.emit(old, cur.Clone())
	return nil
}

func (g *Gorm) Subscribe(fn func(Change)) func() {
	return g.subscribe(fn)
}
