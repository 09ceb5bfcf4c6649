package thegoat

import (
	"database/sql/driver"
	"fmt"
	"time"
)

type UserSettings struct {
	EmailNotifications bool `json:"email_notifications,omitempty"`
}

func (us UserSettings) Value() (driver.Value, error) {
	return json.Marshal(us)
}

func (us *UserSettings) Scan(value interface{}) error {
	b, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("can't decode user settings")
	}

	return json.Unmarshal(b, &us)
}

type User struct {
	ID           string       `db:"id" json:"id"`
	Name         string       `db:"name" json:"name"`
	Email        string       `db:"email" json:"email"`
	AvatarURL    string       `db:"avatar_url" json:"avatar_url,omitempty"`
	PasswordHash *string      `db:"password_hash" json:"-"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	Settings     UserSettings `db:"settings" json:"settings"`
	LastLoginAt  time.Time    `db:"last_login_at" json:"last_login_at"`
}
