package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// EquipmentType classifies a piece of monitored equipment
type EquipmentType string

const (
	EquipmentTypeSensor     EquipmentType = "sensor"
	EquipmentTypePump       EquipmentType = "pump"
	EquipmentTypeValve      EquipmentType = "valve"
	EquipmentTypeCompressor EquipmentType = "compressor"
	EquipmentTypeDetector   EquipmentType = "detector"
)

// EquipmentStatus indicates the operational state of equipment
type EquipmentStatus string

const (
	EquipmentStatusActive         EquipmentStatus = "active"
	EquipmentStatusMaintenance    EquipmentStatus = "maintenance"
	EquipmentStatusDecommissioned EquipmentStatus = "decommissioned"
)

// AlertSeverity indicates how urgent an alert is
type AlertSeverity string

const (
	SeverityInfo      AlertSeverity = "info"
	SeverityWarning   AlertSeverity = "warning"
	SeverityCritical  AlertSeverity = "critical"
	SeverityEmergency AlertSeverity = "emergency"
)

// ReadingStatusValid marks a reading that passed ingestion validation.
// Only valid readings are persisted; the constant is stored so downstream
// consumers can distinguish future statuses without a schema change.
const ReadingStatusValid = "valid"

// Equipment represents a registered piece of monitored equipment
type Equipment struct {
	ID               string          `gorm:"primaryKey;size:64" json:"id"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt        gorm.DeletedAt  `gorm:"index" json:"-"`
	Name             string          `gorm:"not null" json:"name"`
	Type             EquipmentType   `gorm:"size:32;not null" json:"type"`
	Status           EquipmentStatus `gorm:"size:32;not null;default:active" json:"status"`
	Location         string          `json:"location"`
	InstalledAt      *time.Time      `json:"installed_at"`
	LastCalibratedAt *time.Time      `json:"last_calibrated_at"`
	Metadata         []byte          `gorm:"type:jsonb" json:"metadata,omitempty"`
}

// SensorReading is one persisted measurement from a piece of equipment.
// The composite unique index on (equipment_id, metric_name, timestamp) is the
// storage backstop for batch deduplication: concurrent batches that overlap on
// an identity key cannot both insert a row for it.
type SensorReading struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	EquipmentID   string    `gorm:"size:64;not null;uniqueIndex:idx_readings_identity,priority:1;index" json:"equipment_id"`
	MetricName    string    `gorm:"size:64;not null;uniqueIndex:idx_readings_identity,priority:2" json:"metric_name"`
	Timestamp     time.Time `gorm:"not null;uniqueIndex:idx_readings_identity,priority:3;index" json:"timestamp"`
	MetricValue   float64   `gorm:"not null" json:"metric_value"`
	MetricUnit    string    `gorm:"size:32" json:"metric_unit,omitempty"`
	ReadingStatus string    `gorm:"size:32;not null;default:valid" json:"reading_status"`
	Metadata      []byte    `gorm:"type:jsonb" json:"metadata,omitempty"`
	ReceivedAt    time.Time `gorm:"not null" json:"received_at"`
}

// QualityRecord stores the per-batch ingestion outcome and quality profile.
// One row per batch; score columns are nullable because an empty batch has no
// defined scores.
type QualityRecord struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BatchID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"batch_id"`
	Source       string    `gorm:"size:32;not null" json:"source"`
	Submitted    int       `gorm:"not null" json:"submitted"`
	Accepted     int       `gorm:"not null" json:"accepted"`
	Rejected     int       `gorm:"not null" json:"rejected"`
	Deduplicated int       `gorm:"not null" json:"deduplicated"`
	Inserted     int64     `gorm:"not null" json:"inserted"`
	Completeness *float64  `json:"completeness"`
	Validity     *float64  `json:"validity"`
	Timeliness   *float64  `json:"timeliness"`
	Uniqueness   *float64  `json:"uniqueness"`
	Consistency  *float64  `json:"consistency"`
	Status       string    `gorm:"size:32;not null" json:"status"`
	ProcessingMs int64     `gorm:"not null" json:"processing_ms"`
	CreatedAt    time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// Alert records a safety-threshold violation detected over recent readings
type Alert struct {
	ID             uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt      time.Time     `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt      time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
	EquipmentID    string        `gorm:"size:64;not null;index" json:"equipment_id"`
	MetricName     string        `gorm:"size:64;not null" json:"metric_name"`
	AlertType      string        `gorm:"size:64;not null" json:"alert_type"`
	Severity       AlertSeverity `gorm:"size:32;not null" json:"severity"`
	Message        string        `gorm:"not null" json:"message"`
	ThresholdValue float64       `gorm:"not null" json:"threshold_value"`
	ActualValue    float64       `gorm:"not null" json:"actual_value"`
	Acknowledged   bool          `gorm:"not null;default:false" json:"acknowledged"`
	AcknowledgedAt *time.Time    `json:"acknowledged_at"`
	Resolved       bool          `gorm:"not null;default:false;index" json:"resolved"`
	ResolvedAt     *time.Time    `json:"resolved_at"`
}

// AlertTypeThresholdExceeded is the alert type raised by the threshold scanner
const AlertTypeThresholdExceeded = "threshold_exceeded"

// SetupModels configures GORM models and runs migrations
func SetupModels(db *gorm.DB) error {
	err := db.AutoMigrate(
		&Equipment{},
		&SensorReading{},
		&QualityRecord{},
		&Alert{},
	)
	if err != nil {
		return errors.Wrap(err, "failed to run auto migrations")
	}

	return nil
}
