package ruleconfig

import (
	"context"
	"database/sql"
	"time"

	"github.com/faceguard/core/internal/domain"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

func (s *Store) UpsertHighPriorityPerson(ctx context.Context, p domain.HighPriorityPerson) error {
	query := `
		INSERT INTO high_priority_persons (person_id, priority_level, alert_reason, escalation_channels, notification_frequency, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (person_id) DO UPDATE SET
			priority_level = EXCLUDED.priority_level,
			alert_reason = EXCLUDED.alert_reason,
			escalation_channels = EXCLUDED.escalation_channels,
			notification_frequency = EXCLUDED.notification_frequency,
			is_active = EXCLUDED.is_active`
	_, err := s.DB.ExecContext(ctx, query,
		p.PersonID, string(p.PriorityLevel), p.AlertReason, pq.Array(p.EscalationChannels),
		string(p.NotificationFrequency), p.IsActive,
	)
	return err
}

func (s *Store) RemoveHighPriorityPerson(ctx context.Context, personID string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM high_priority_persons WHERE person_id = $1`, personID)
	if err != nil {
		return err
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// HighPriorityPerson looks up a person's active high-priority registration.
// found is false (not an error) when the person carries no registration —
// the common case for most sightings, mirrored in
// internal/dataservice.HighPriorityStatus.
func (s *Store) HighPriorityPerson(ctx context.Context, personID string) (p domain.HighPriorityPerson, found bool, err error) {
	query := `
		SELECT person_id, priority_level, alert_reason, escalation_channels, notification_frequency, is_active
		FROM high_priority_persons
		WHERE person_id = $1 AND is_active`
	var channels []string
	var level, freq string
	err = s.DB.QueryRowContext(ctx, query, personID).Scan(
		&p.PersonID, &level, &p.AlertReason, pq.Array(&channels), &freq, &p.IsActive,
	)
	if err == sql.ErrNoRows {
		return domain.HighPriorityPerson{}, false, nil
	}
	if err != nil {
		return domain.HighPriorityPerson{}, false, err
	}
	p.PriorityLevel = domain.HighPriorityLevel(level)
	p.NotificationFrequency = domain.NotificationFrequency(freq)
	p.EscalationChannels = channels
	return p, true, nil
}

func (s *Store) ListHighPriorityPersons(ctx context.Context) ([]domain.HighPriorityPerson, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT person_id, priority_level, alert_reason, escalation_channels, notification_frequency, is_active
		FROM high_priority_persons ORDER BY person_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.HighPriorityPerson
	for rows.Next() {
		var p domain.HighPriorityPerson
		var channels []string
		var level, freq string
		if err := rows.Scan(&p.PersonID, &level, &p.AlertReason, pq.Array(&channels), &freq, &p.IsActive); err != nil {
			return nil, err
		}
		p.PriorityLevel = domain.HighPriorityLevel(level)
		p.NotificationFrequency = domain.NotificationFrequency(freq)
		p.EscalationChannels = channels
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) LinkContact(ctx context.Context, link domain.HighPriorityContactLink) error {
	query := `
		INSERT INTO high_priority_contact_links (person_id, contact_id, escalation_delay_minutes, priority_override, custom_message_template)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (person_id, contact_id) DO UPDATE SET
			escalation_delay_minutes = EXCLUDED.escalation_delay_minutes,
			priority_override = EXCLUDED.priority_override,
			custom_message_template = EXCLUDED.custom_message_template`
	_, err := s.DB.ExecContext(ctx, query,
		link.PersonID, link.ContactID, link.EscalationDelayMinutes, string(link.PriorityOverride), link.CustomMessageTemplate)
	return err
}

func (s *Store) UnlinkContact(ctx context.Context, personID, contactID string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM high_priority_contact_links WHERE person_id = $1 AND contact_id = $2`, personID, contactID)
	return err
}

// ContactLinks returns every contact escalation link configured for a
// high-priority person, ordered by escalation delay so callers notify the
// zero-delay contacts first.
func (s *Store) ContactLinks(ctx context.Context, personID string) ([]domain.HighPriorityContactLink, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT person_id, contact_id, escalation_delay_minutes, priority_override, custom_message_template
		FROM high_priority_contact_links
		WHERE person_id = $1
		ORDER BY escalation_delay_minutes ASC`, personID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.HighPriorityContactLink
	for rows.Next() {
		var l domain.HighPriorityContactLink
		var override string
		if err := rows.Scan(&l.PersonID, &l.ContactID, &l.EscalationDelayMinutes, &override, &l.CustomMessageTemplate); err != nil {
			return nil, err
		}
		l.PriorityOverride = domain.Priority(override)
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *Store) CreateContact(ctx context.Context, c *domain.NotificationContact) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	allowedDays := weekdaysToInts(c.AllowedDays)
	allowedHours, err := marshalTimeRanges(c.AllowedHours)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO notification_contacts (
			id, type, value, verified, priority, allowed_hours, allowed_days, max_per_hour, active, person_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err = s.DB.ExecContext(ctx, query,
		c.ID, string(c.Type), c.Value, c.Verified, c.Priority, allowedHours, pq.Array(allowedDays), c.MaxPerHour, c.Active, c.PersonID)
	return err
}

// Contact resolves a notification contact by id from the local
// notification_contacts table. The evaluator's contact lookup goes through
// internal/dataservice.Client.Contact, which queries the external data
// service instead.
func (s *Store) Contact(ctx context.Context, id string) (domain.NotificationContact, error) {
	query := `
		SELECT id, type, value, verified, priority, allowed_hours, allowed_days, max_per_hour, active, person_id
		FROM notification_contacts WHERE id = $1`
	var c domain.NotificationContact
	var typ string
	var allowedHoursJSON []byte
	var allowedDays []int64

	err := s.DB.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &typ, &c.Value, &c.Verified, &c.Priority, &allowedHoursJSON, pq.Array(&allowedDays), &c.MaxPerHour, &c.Active, &c.PersonID)
	if err != nil {
		return domain.NotificationContact{}, rowNotFound(err)
	}
	c.Type = domain.ContactType(typ)
	c.AllowedDays = intsToWeekdays(allowedDays)
	ranges, err := unmarshalTimeRanges(allowedHoursJSON)
	if err != nil {
		return domain.NotificationContact{}, err
	}
	c.AllowedHours = ranges
	return c, nil
}

func weekdaysToInts(days map[time.Weekday]bool) []int64 {
	out := make([]int64, 0, len(days))
	for d, on := range days {
		if on {
			out = append(out, int64(d))
		}
	}
	return out
}

func intsToWeekdays(days []int64) map[time.Weekday]bool {
	out := make(map[time.Weekday]bool, len(days))
	for _, d := range days {
		out[time.Weekday(d)] = true
	}
	return out
}
