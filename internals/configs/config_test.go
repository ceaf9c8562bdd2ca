package configs

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{"empty uses default", "", 10 * time.Second},
		{"go duration", "1m30s", 90 * time.Second},
		{"plain seconds", "7", 7 * time.Second},
		{"garbage uses default", "soon", 10 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.value)
			if got := GetEnvDuration("TEST_DURATION", 10*time.Second); got != tt.want {
				t.Errorf("GetEnvDuration(%q) = %s, want %s", tt.value, got, tt.want)
			}
		})
	}
}

func TestLoadSettingsDefaults(t *testing.T) {
	for _, k := range []string{"NOTIFY_DEBOUNCE", "NOTIFY_COOLDOWN", "NOTIFY_WORKERS", "AUTHORIZED_PERSONS_MAX", "ATTENDANCE_PROVISIONAL_SUPERSEDE", "CRON_SEED_ABSENT", "DEFAULT_FROM_EMAIL", "EMAIL_HOST_USER", "EMAIL_HOST"} {
		t.Setenv(k, "")
	}
	s := LoadSettings()
	if s.Notify.Debounce != 10*time.Second {
		t.Errorf("Debounce = %s, want 10s", s.Notify.Debounce)
	}
	if s.Notify.Cooldown != 5*time.Second {
		t.Errorf("Cooldown = %s, want 5s", s.Notify.Cooldown)
	}
	if s.AuthorizedPersonsMax != 3 {
		t.Errorf("AuthorizedPersonsMax = %d, want 3", s.AuthorizedPersonsMax)
	}
	if s.ProvisionalSupersede {
		t.Error("ProvisionalSupersede should default to false")
	}
	if s.SMTP.Enabled() {
		t.Error("SMTP should be disabled without EMAIL_HOST")
	}
}

func TestLoadSettingsClampsWorkers(t *testing.T) {
	t.Setenv("NOTIFY_WORKERS", "0")
	s := LoadSettings()
	if s.Notify.Workers != 1 {
		t.Errorf("Workers = %d, want 1", s.Notify.Workers)
	}
}

func TestSettingsLocationFallback(t *testing.T) {
	s := Settings{SchoolTimezone: "Mars/Olympus_Mons"}
	if loc := s.Location(); loc != time.UTC {
		t.Errorf("Location() = %v, want UTC", loc)
	}
	s.SchoolTimezone = "UTC"
	if loc := s.Location(); loc.String() != "UTC" {
		t.Errorf("Location() = %v, want UTC", loc)
	}
}

func TestLoadEnvAPIUserID(t *testing.T) {
	t.Setenv("RAILWAY_ENVIRONMENT", "test")
	fallback := uuid.NewSHA1(uuid.NameSpaceURL, []byte("scoda:api-key"))

	t.Setenv("SCODA_API_USER_ID", "")
	LoadEnv()
	if APIUserID != fallback {
		t.Errorf("unset: APIUserID = %s, want %s", APIUserID, fallback)
	}

	id := uuid.New()
	t.Setenv("SCODA_API_USER_ID", id.String())
	LoadEnv()
	if APIUserID != id {
		t.Errorf("set: APIUserID = %s, want %s", APIUserID, id)
	}

	t.Setenv("SCODA_API_USER_ID", "not-a-uuid")
	LoadEnv()
	if APIUserID != fallback {
		t.Errorf("invalid: APIUserID = %s, want %s", APIUserID, fallback)
	}
}
