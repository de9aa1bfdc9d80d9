package storage

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/md-rashed-zaman/slotdesk/services/booking-service/internal/model"
)

// jsonBytes accepts the []byte or string a driver hands back for json/jsonb.
func jsonBytes(value any) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	}
	return nil, fmt.Errorf("unexpected json column type %T", value)
}

// SlotsColumn stores recurring availability as a JSONB array.
type SlotsColumn []model.RecurringSlot

func (s SlotsColumn) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *SlotsColumn) Scan(value any) error {
	if value == nil {
		*s = nil
		return nil
	}
	b, err := jsonBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, s)
}

// PrefsColumn stores notification preferences as a JSONB object.
type PrefsColumn model.NotificationPrefs

func (p PrefsColumn) Value() (driver.Value, error) {
	b, err := json.Marshal(model.NotificationPrefs(p))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (p *PrefsColumn) Scan(value any) error {
	if value == nil {
		*p = PrefsColumn(model.DefaultNotificationPrefs())
		return nil
	}
	b, err := jsonBytes(value)
	if err != nil {
		return err
	}
	var prefs model.NotificationPrefs
	if err := json.Unmarshal(b, &prefs); err != nil {
		return err
	}
	*p = PrefsColumn(prefs)
	return nil
}
