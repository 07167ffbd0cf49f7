package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/logmyjob/internal/offline/domain"
)

func TestDefaultNotificationSettings(t *testing.T) {
	s := domain.DefaultNotificationSettings()

	assert.False(t, s.Enabled)
	assert.Equal(t, "18:00", s.Time)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, s.Weekdays)
	assert.NoError(t, s.Validate())
}

func TestNotificationSettings_TargetMinute(t *testing.T) {
	m, err := domain.NotificationSettings{Time: "18:00"}.TargetMinute()
	require.NoError(t, err)
	assert.Equal(t, 18*60, m)

	m, err = domain.NotificationSettings{Time: "07:05"}.TargetMinute()
	require.NoError(t, err)
	assert.Equal(t, 7*60+5, m)

	for _, bad := range []string{"", "18", "7:00", "24:00", "12:60", "ab:cd"} {
		_, err := domain.NotificationSettings{Time: bad}.TargetMinute()
		assert.Error(t, err, bad)
	}
}

func TestNotificationSettings_Validate(t *testing.T) {
	assert.Error(t, domain.NotificationSettings{Time: "18:00", Weekdays: []int{7}}.Validate())
	assert.Error(t, domain.NotificationSettings{Time: "18:00", Weekdays: []int{-1}}.Validate())
	assert.NoError(t, domain.NotificationSettings{Time: "09:30", Weekdays: []int{0, 6}}.Validate())
}

func TestNotificationSettings_NormalizeAndActiveOn(t *testing.T) {
	s := domain.NotificationSettings{Time: "18:00", Weekdays: []int{5, 1, 1, 3}}.Normalize()

	assert.Equal(t, []int{1, 3, 5}, s.Weekdays)
	assert.True(t, s.ActiveOn(time.Monday))
	assert.False(t, s.ActiveOn(time.Tuesday))
}

func TestVacationWindow(t *testing.T) {
	v := domain.VacationWindow{DateStart: "2024-08-01", DateEnd: "2024-08-15"}
	require.NoError(t, v.Validate())

	assert.True(t, v.Contains("2024-08-01"), "start is inclusive")
	assert.True(t, v.Contains("2024-08-15"), "end is inclusive")
	assert.False(t, v.Contains("2024-07-31"))
	assert.False(t, v.Contains("2024-08-16"))

	assert.True(t, v.Overlaps(domain.VacationWindow{DateStart: "2024-08-15", DateEnd: "2024-08-20"}))
	assert.False(t, v.Overlaps(domain.VacationWindow{DateStart: "2024-08-16", DateEnd: "2024-08-20"}))

	assert.Error(t, domain.VacationWindow{DateStart: "2024-08-15", DateEnd: "2024-08-01"}.Validate())
	assert.Error(t, domain.VacationWindow{DateStart: "15/08/2024", DateEnd: "2024-08-20"}.Validate())
}
