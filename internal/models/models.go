package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

type BaseModel struct {
	ID        uint           `json:"id" gorm:"primarykey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

type User struct {
	BaseModel
	Username string `json:"username" gorm:"uniqueIndex;size:100;not null"`
	Email    string `json:"email" gorm:"uniqueIndex;size:100;not null"`
	Password string `json:"-" gorm:"size:255;not null"`
	Status   int    `json:"status" gorm:"default:1"` // 1:active, 0:inactive
}

// AutomationRecord is a named, persisted bundle of actions with
// optional recurrence. The scheduler never copies record content; it
// only holds a timer handle keyed by UID.
type AutomationRecord struct {
	BaseModel
	UID             string `json:"uid" gorm:"uniqueIndex;size:64;not null"`
	Name            string `json:"name" gorm:"size:200;not null"`
	StartURL        string `json:"start_url" gorm:"size:500"`
	Actions         string `json:"actions" gorm:"type:longtext"` // JSON ActionList
	AutoRun         bool   `json:"auto_run" gorm:"default:false"`
	FrequencyMS     int64  `json:"frequency_ms"`              // 0 => run once
	CronExpr        string `json:"cron_expr" gorm:"size:100"` // optional cron schedule
	Paused          bool   `json:"paused" gorm:"default:false"`
	CreateTimestamp int64  `json:"create_timestamp" gorm:"not null"`
	UserID          uint   `json:"user_id"`
}

// NewRecord stamps a record with its creation time and the UID derived
// from it.
func NewRecord(name string) AutomationRecord {
	ts := time.Now().UnixMilli()
	return AutomationRecord{
		UID:             UIDFromTimestamp(ts),
		Name:            name,
		CreateTimestamp: ts,
	}
}

func UIDFromTimestamp(ts int64) string {
	return fmt.Sprintf("rec-%d", ts)
}

// GetActions decodes the serialized action list.
func (r *AutomationRecord) GetActions() (ActionList, error) {
	if r.Actions == "" {
		return nil, nil
	}
	return ParseActionList([]byte(r.Actions))
}

// SetActions serializes actions into the record.
func (r *AutomationRecord) SetActions(actions ActionList) error {
	data, err := actions.MarshalJSON()
	if err != nil {
		return err
	}
	r.Actions = string(data)
	return nil
}
