package repositories

import (
	"context"
	"time"

	"example.com/safetysync/services/telemetry/internal/models"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EquipmentFilter narrows equipment listings
type EquipmentFilter struct {
	Type     models.EquipmentType
	Status   models.EquipmentStatus
	Location string
	Page     int
	PageSize int
}

// AlertFilter narrows alert listings
type AlertFilter struct {
	EquipmentID    string
	Severity       models.AlertSeverity
	UnresolvedOnly bool
	Limit          int
}

// EquipmentActivity summarizes recent readings per equipment for health reporting
type EquipmentActivity struct {
	EquipmentID string     `json:"equipment_id"`
	Readings    int64      `json:"readings"`
	LastSeen    *time.Time `json:"last_seen"`
}

// QualityAggregate is the rollup of quality records over a time window
type QualityAggregate struct {
	Batches         int64    `json:"batches"`
	Submitted       int64    `json:"submitted"`
	Accepted        int64    `json:"accepted"`
	Rejected        int64    `json:"rejected"`
	Deduplicated    int64    `json:"deduplicated"`
	Inserted        int64    `json:"inserted"`
	AvgCompleteness *float64 `json:"avg_completeness"`
	AvgValidity     *float64 `json:"avg_validity"`
	AvgTimeliness   *float64 `json:"avg_timeliness"`
	AvgUniqueness   *float64 `json:"avg_uniqueness"`
	AvgConsistency  *float64 `json:"avg_consistency"`
}

// EquipmentRepository provides access to the equipment registry
type EquipmentRepository interface {
	Create(ctx context.Context, equipment *models.Equipment) error
	GetByID(ctx context.Context, id string) (*models.Equipment, error)
	List(ctx context.Context, filter EquipmentFilter) ([]models.Equipment, int64, error)
	Update(ctx context.Context, equipment *models.Equipment) error
	Delete(ctx context.Context, id string) error
	SetStatus(ctx context.Context, id string, status models.EquipmentStatus) error
	KnownActive(ctx context.Context, ids []string) (map[string]bool, error)
}

// ReadingRepository provides access to persisted sensor readings
type ReadingRepository interface {
	BulkInsert(ctx context.Context, readings []models.SensorReading) (int64, error)
	ListSince(ctx context.Context, since time.Time) ([]models.SensorReading, error)
	CountForEquipment(ctx context.Context, equipmentID string) (int64, error)
	EquipmentActivity(ctx context.Context, since time.Time) ([]EquipmentActivity, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// QualityRepository provides access to per-batch quality records
type QualityRepository interface {
	Create(ctx context.Context, record *models.QualityRecord) error
	AggregateSince(ctx context.Context, since time.Time) (*QualityAggregate, error)
}

// AlertRepository provides access to alerts
type AlertRepository interface {
	Create(ctx context.Context, alert *models.Alert) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Alert, error)
	HasOpen(ctx context.Context, equipmentID, metricName string) (bool, error)
	List(ctx context.Context, filter AlertFilter) ([]models.Alert, error)
	Update(ctx context.Context, alert *models.Alert) error
	DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// equipmentRepository is the GORM implementation of EquipmentRepository
type equipmentRepository struct {
	db *gorm.DB
}

// NewEquipmentRepository creates a new equipment repository
func NewEquipmentRepository(db *gorm.DB) EquipmentRepository {
	return &equipmentRepository{db: db}
}

func (r *equipmentRepository) Create(ctx context.Context, equipment *models.Equipment) error {
	err := r.db.WithContext(ctx).Create(equipment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errors.Wrapf(ErrAlreadyExists, "equipment %s", equipment.ID)
		}
		return errors.Wrap(err, "failed to create equipment")
	}
	return nil
}

func (r *equipmentRepository) GetByID(ctx context.Context, id string) (*models.Equipment, error) {
	var equipment models.Equipment
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&equipment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Wrapf(ErrNotFound, "equipment %s", id)
		}
		return nil, errors.Wrap(err, "failed to get equipment")
	}
	return &equipment, nil
}

func (r *equipmentRepository) List(ctx context.Context, filter EquipmentFilter) ([]models.Equipment, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Equipment{})
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Location != "" {
		query = query.Where("location = ?", filter.Location)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "failed to count equipment")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}

	var equipment []models.Equipment
	err := query.Order("id").Offset((page - 1) * pageSize).Limit(pageSize).Find(&equipment).Error
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to list equipment")
	}
	return equipment, total, nil
}

func (r *equipmentRepository) Update(ctx context.Context, equipment *models.Equipment) error {
	result := r.db.WithContext(ctx).Model(&models.Equipment{}).
		Where("id = ?", equipment.ID).
		Updates(equipment)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to update equipment")
	}
	if result.RowsAffected == 0 {
		return errors.Wrapf(ErrNotFound, "equipment %s", equipment.ID)
	}
	return nil
}

func (r *equipmentRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Equipment{})
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to delete equipment")
	}
	if result.RowsAffected == 0 {
		return errors.Wrapf(ErrNotFound, "equipment %s", id)
	}
	return nil
}

func (r *equipmentRepository) SetStatus(ctx context.Context, id string, status models.EquipmentStatus) error {
	result := r.db.WithContext(ctx).Model(&models.Equipment{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to update equipment status")
	}
	if result.RowsAffected == 0 {
		return errors.Wrapf(ErrNotFound, "equipment %s", id)
	}
	return nil
}

// KnownActive resolves which of the given ids belong to registered equipment
// that is not decommissioned. One query per batch.
func (r *equipmentRepository) KnownActive(ctx context.Context, ids []string) (map[string]bool, error) {
	known := make(map[string]bool, len(ids))
	if len(ids) == 0 {
		return known, nil
	}

	var found []string
	err := r.db.WithContext(ctx).Model(&models.Equipment{}).
		Where("id IN ? AND status <> ?", ids, models.EquipmentStatusDecommissioned).
		Pluck("id", &found).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve equipment ids")
	}

	for _, id := range found {
		known[id] = true
	}
	return known, nil
}

// readingRepository is the GORM implementation of ReadingRepository
type readingRepository struct {
	db *gorm.DB
}

// NewReadingRepository creates a new reading repository
func NewReadingRepository(db *gorm.DB) ReadingRepository {
	return &readingRepository{db: db}
}

// BulkInsert persists the readings in a single transactional multi-row insert.
// Rows whose identity key (equipment_id, metric_name, timestamp) already
// exists are skipped, so retrying the same batch is idempotent. Returns the
// number of rows actually inserted.
func (r *readingRepository) BulkInsert(ctx context.Context, readings []models.SensorReading) (int64, error) {
	if len(readings) == 0 {
		return 0, nil
	}

	var inserted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "equipment_id"},
				{Name: "metric_name"},
				{Name: "timestamp"},
			},
			DoNothing: true,
		}).Create(&readings)
		if result.Error != nil {
			return result.Error
		}
		inserted = result.RowsAffected
		return nil
	})
	if err != nil {
		return 0, errors.Wrap(err, "bulk insert failed")
	}
	return inserted, nil
}

func (r *readingRepository) ListSince(ctx context.Context, since time.Time) ([]models.SensorReading, error) {
	var readings []models.SensorReading
	err := r.db.WithContext(ctx).
		Where("timestamp >= ?", since).
		Order("timestamp").
		Find(&readings).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list readings")
	}
	return readings, nil
}

func (r *readingRepository) CountForEquipment(ctx context.Context, equipmentID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.SensorReading{}).
		Where("equipment_id = ?", equipmentID).
		Count(&count).Error
	if err != nil {
		return 0, errors.Wrap(err, "failed to count readings")
	}
	return count, nil
}

func (r *readingRepository) EquipmentActivity(ctx context.Context, since time.Time) ([]EquipmentActivity, error) {
	var activity []EquipmentActivity
	err := r.db.WithContext(ctx).Model(&models.SensorReading{}).
		Select("equipment_id, count(*) as readings, max(timestamp) as last_seen").
		Where("timestamp >= ?", since).
		Group("equipment_id").
		Order("equipment_id").
		Scan(&activity).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to aggregate equipment activity")
	}
	return activity, nil
}

func (r *readingRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("timestamp < ?", cutoff).
		Delete(&models.SensorReading{})
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to delete expired readings")
	}
	return result.RowsAffected, nil
}

// qualityRepository is the GORM implementation of QualityRepository
type qualityRepository struct {
	db *gorm.DB
}

// NewQualityRepository creates a new quality record repository
func NewQualityRepository(db *gorm.DB) QualityRepository {
	return &qualityRepository{db: db}
}

func (r *qualityRepository) Create(ctx context.Context, record *models.QualityRecord) error {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return errors.Wrap(err, "failed to create quality record")
	}
	return nil
}

func (r *qualityRepository) AggregateSince(ctx context.Context, since time.Time) (*QualityAggregate, error) {
	var agg QualityAggregate
	err := r.db.WithContext(ctx).Model(&models.QualityRecord{}).
		Select(`count(*) as batches,
			coalesce(sum(submitted), 0) as submitted,
			coalesce(sum(accepted), 0) as accepted,
			coalesce(sum(rejected), 0) as rejected,
			coalesce(sum(deduplicated), 0) as deduplicated,
			coalesce(sum(inserted), 0) as inserted,
			avg(completeness) as avg_completeness,
			avg(validity) as avg_validity,
			avg(timeliness) as avg_timeliness,
			avg(uniqueness) as avg_uniqueness,
			avg(consistency) as avg_consistency`).
		Where("created_at >= ?", since).
		Scan(&agg).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to aggregate quality records")
	}
	return &agg, nil
}

// alertRepository is the GORM implementation of AlertRepository
type alertRepository struct {
	db *gorm.DB
}

// NewAlertRepository creates a new alert repository
func NewAlertRepository(db *gorm.DB) AlertRepository {
	return &alertRepository{db: db}
}

func (r *alertRepository) Create(ctx context.Context, alert *models.Alert) error {
	if err := r.db.WithContext(ctx).Create(alert).Error; err != nil {
		return errors.Wrap(err, "failed to create alert")
	}
	return nil
}

func (r *alertRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Alert, error) {
	var alert models.Alert
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&alert).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Wrapf(ErrNotFound, "alert %s", id)
		}
		return nil, errors.Wrap(err, "failed to get alert")
	}
	return &alert, nil
}

// HasOpen reports whether an unresolved alert already exists for the
// equipment and metric, so the scanner does not raise duplicates.
func (r *alertRepository) HasOpen(ctx context.Context, equipmentID, metricName string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Alert{}).
		Where("equipment_id = ? AND metric_name = ? AND resolved = false", equipmentID, metricName).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "failed to check open alerts")
	}
	return count > 0, nil
}

func (r *alertRepository) List(ctx context.Context, filter AlertFilter) ([]models.Alert, error) {
	query := r.db.WithContext(ctx).Model(&models.Alert{})
	if filter.EquipmentID != "" {
		query = query.Where("equipment_id = ?", filter.EquipmentID)
	}
	if filter.Severity != "" {
		query = query.Where("severity = ?", filter.Severity)
	}
	if filter.UnresolvedOnly {
		query = query.Where("resolved = false")
	}

	limit := filter.Limit
	if limit < 1 || limit > 500 {
		limit = 100
	}

	var alerts []models.Alert
	err := query.Order("created_at DESC").Limit(limit).Find(&alerts).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list alerts")
	}
	return alerts, nil
}

func (r *alertRepository) Update(ctx context.Context, alert *models.Alert) error {
	if err := r.db.WithContext(ctx).Save(alert).Error; err != nil {
		return errors.Wrap(err, "failed to update alert")
	}
	return nil
}

func (r *alertRepository) DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("resolved = true AND resolved_at < ?", cutoff).
		Delete(&models.Alert{})
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to delete resolved alerts")
	}
	return result.RowsAffected, nil
}
