package gormrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"gorm.io/gorm"

	"github.com/aminpamelo/mudeerbedaie-sub010/core"
	"github.com/aminpamelo/mudeerbedaie-sub010/core/notification"
)

var errUnknownClass = core.FieldError{Field: "class_id", Error: "unknown class"}

type ruleModel struct {
	ID             string    `gorm:"column:id;type:uuid;primaryKey"`
	ClassID        string    `gorm:"column:class_id;type:uuid;index"`
	Name           string    `gorm:"column:name"`
	Type           string    `gorm:"column:type"`
	IsEnabled      bool      `gorm:"column:is_enabled"`
	SendToStudents bool      `gorm:"column:send_to_students"`
	SendToTeacher  bool      `gorm:"column:send_to_teacher"`
	MinutesBefore  null.Int  `gorm:"column:minutes_before;type:integer"`
	MinutesAfter   null.Int  `gorm:"column:minutes_after;type:integer"`
	Template       string    `gorm:"column:template"`
	CreatedAt      time.Time `gorm:"column:created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}

func (ruleModel) TableName() string { return "notification_rule" }

func (m ruleModel) rule() notification.Rule {
	return notification.Rule{
		ID:             m.ID,
		ClassID:        m.ClassID,
		Name:           m.Name,
		Type:           notification.RuleType(m.Type),
		IsEnabled:      m.IsEnabled,
		SendToStudents: m.SendToStudents,
		SendToTeacher:  m.SendToTeacher,
		MinutesBefore:  m.MinutesBefore,
		MinutesAfter:   m.MinutesAfter,
		Template:       m.Template,
		CreatedAt:      m.CreatedAt.UTC(),
		UpdatedAt:      m.UpdatedAt.UTC(),
	}
}

type ruleRepository struct {
	db *gorm.DB
}

var _ notification.RuleRepository = (*ruleRepository)(nil) // interface compliance check

func NewRuleRepository(db *gorm.DB) *ruleRepository {
	return &ruleRepository{db: db}
}

func (repo ruleRepository) CreateRule(ctx context.Context, rule notification.Rule) (notification.Rule, error) {
	m := ruleModel{
		ID:             uuid.New().String(),
		ClassID:        rule.ClassID,
		Name:           rule.Name,
		Type:           string(rule.Type),
		IsEnabled:      rule.IsEnabled,
		SendToStudents: rule.SendToStudents,
		SendToTeacher:  rule.SendToTeacher,
		MinutesBefore:  rule.MinutesBefore,
		MinutesAfter:   rule.MinutesAfter,
		Template:       rule.Template,
		CreatedAt:      rule.CreatedAt.UTC(),
		UpdatedAt:      rule.UpdatedAt.UTC(),
	}
	if err := repo.db.WithContext(ctx).Create(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return notification.Rule{}, core.NewValidationError(err, errUnknownClass)
		}
		return notification.Rule{}, errors.Wrap(err, "creating rule")
	}
	return m.rule(), nil
}

func (repo ruleRepository) GetRule(ctx context.Context, id string) (notification.Rule, error) {
	if _, err := uuid.Parse(id); err != nil {
		return notification.Rule{}, notification.ErrRuleNotFound
	}
	var m ruleModel
	if err := repo.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notification.Rule{}, notification.ErrRuleNotFound
		}
		return notification.Rule{}, errors.Wrap(err, "getting rule")
	}
	return m.rule(), nil
}

func (repo ruleRepository) QueryRules(ctx context.Context, classID string, enabledOnly bool) ([]notification.Rule, error) {
	q := repo.db.WithContext(ctx).Where("class_id = ?", classID)
	if enabledOnly {
		q = q.Where("is_enabled = ?", true)
	}
	var ms []ruleModel
	if err := q.Order("created_at, id").Find(&ms).Error; err != nil {
		return nil, errors.Wrap(err, "querying rules")
	}
	rules := make([]notification.Rule, 0, len(ms))
	for _, m := range ms {
		rules = append(rules, m.rule())
	}
	return rules, nil
}

func (repo ruleRepository) SetRuleEnabled(ctx context.Context, id string, enabled bool) (notification.Rule, error) {
	if _, err := uuid.Parse(id); err != nil {
		return notification.Rule{}, notification.ErrRuleNotFound
	}
	res := repo.db.WithContext(ctx).Model(&ruleModel{}).Where("id = ?", id).Updates(map[string]interface{}{
		"is_enabled": enabled,
		"updated_at": core.NowFunc().UTC(),
	})
	if res.Error != nil {
		return notification.Rule{}, errors.Wrap(res.Error, "updating rule")
	}
	if res.RowsAffected == 0 {
		return notification.Rule{}, notification.ErrRuleNotFound
	}
	return repo.GetRule(ctx, id)
}
