package ruleconfig

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/faceguard/core/internal/domain"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// CreateRule inserts a new AlertRule, assigning it an id if none is set.
func (s *Store) CreateRule(ctx context.Context, r *domain.AlertRule) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	conditions, err := json.Marshal(r.Conditions)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO alert_rules (
			id, name, priority, conditions, cooldown_minutes, escalation_minutes,
			auto_resolve_minutes, notification_channels, notification_template, is_active
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err = s.DB.ExecContext(ctx, query,
		r.ID, r.Name, string(r.Priority), conditions, r.CooldownMinutes, r.EscalationMinutes,
		r.AutoResolveMinutes, pq.Array(r.NotificationChannels), r.NotificationTemplate, r.IsActive,
	)
	return err
}

func (s *Store) UpdateRule(ctx context.Context, r domain.AlertRule) error {
	conditions, err := json.Marshal(r.Conditions)
	if err != nil {
		return err
	}
	query := `
		UPDATE alert_rules
		SET name = $1, priority = $2, conditions = $3, cooldown_minutes = $4,
		    escalation_minutes = $5, auto_resolve_minutes = $6, notification_channels = $7,
		    notification_template = $8, is_active = $9
		WHERE id = $10`
	res, err := s.DB.ExecContext(ctx, query,
		r.Name, string(r.Priority), conditions, r.CooldownMinutes, r.EscalationMinutes,
		r.AutoResolveMinutes, pq.Array(r.NotificationChannels), r.NotificationTemplate, r.IsActive, r.ID,
	)
	if err != nil {
		return err
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) SetRuleActive(ctx context.Context, id string, active bool) error {
	res, err := s.DB.ExecContext(ctx, `UPDATE alert_rules SET is_active = $1 WHERE id = $2`, active, id)
	if err != nil {
		return err
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DeleteRule(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM alert_rules WHERE id = $1`, id)
	if err != nil {
		return err
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) Rule(ctx context.Context, id string) (domain.AlertRule, error) {
	row := s.DB.QueryRowContext(ctx, ruleSelect+` WHERE id = $1`, id)
	r, err := scanRule(row)
	if err != nil {
		return domain.AlertRule{}, rowNotFound(err)
	}
	return r, nil
}

func (s *Store) ListRules(ctx context.Context) ([]domain.AlertRule, error) {
	rows, err := s.DB.QueryContext(ctx, ruleSelect+` ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRules(rows)
}

// ActiveRules implements internal/alerts.RuleProvider: the set of
// is_active=true rules the evaluator matches each sighting against.
func (s *Store) ActiveRules(ctx context.Context) ([]domain.AlertRule, error) {
	rows, err := s.DB.QueryContext(ctx, ruleSelect+` WHERE is_active ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRules(rows)
}

const ruleSelect = `
	SELECT id, name, priority, conditions, cooldown_minutes, escalation_minutes,
	       auto_resolve_minutes, notification_channels, notification_template, is_active
	FROM alert_rules`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(row rowScanner) (domain.AlertRule, error) {
	var r domain.AlertRule
	var priority string
	var conditions []byte
	var escalationMinutes, autoResolveMinutes sql.NullInt64
	var channels []string

	err := row.Scan(&r.ID, &r.Name, &priority, &conditions, &r.CooldownMinutes,
		&escalationMinutes, &autoResolveMinutes, pq.Array(&channels), &r.NotificationTemplate, &r.IsActive)
	if err != nil {
		return domain.AlertRule{}, err
	}
	r.Priority = domain.Priority(priority)
	r.NotificationChannels = channels
	if escalationMinutes.Valid {
		v := int(escalationMinutes.Int64)
		r.EscalationMinutes = &v
	}
	if autoResolveMinutes.Valid {
		v := int(autoResolveMinutes.Int64)
		r.AutoResolveMinutes = &v
	}
	if len(conditions) > 0 {
		if err := json.Unmarshal(conditions, &r.Conditions); err != nil {
			return domain.AlertRule{}, err
		}
	}
	return r, nil
}

func scanRules(rows *sql.Rows) ([]domain.AlertRule, error) {
	var out []domain.AlertRule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
