package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Date — календарный день без времени и часового пояса.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("bad date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// DateOf — день, которому принадлежит t в его собственной зоне.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func (d Date) IsZero() bool { return d.Year == 0 && d.Month == 0 && d.Day == 0 }

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Midnight — начало дня в зоне loc.
func (d Date) Midnight(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

func (d Date) Compare(o Date) int {
	switch {
	case d.Year != o.Year:
		return cmpInt(d.Year, o.Year)
	case d.Month != o.Month:
		return cmpInt(int(d.Month), int(o.Month))
	default:
		return cmpInt(d.Day, o.Day)
	}
}

func (d Date) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Date) UnmarshalText(b []byte) error {
	v, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// Clock — время суток в секундах от полуночи, 0..24:00 включительно.
type Clock int

const (
	Midnight  Clock = 0
	EndOfDay  Clock = 24 * 60 * 60
	clockHour       = 60 * 60
)

func NewClock(hour, minute int) Clock {
	return Clock(hour*clockHour + minute*60)
}

// ParseClock принимает "15:04" и "15:04:05" (так Postgres отдаёт TIME::text).
func ParseClock(s string) (Clock, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("bad time %q", s)
	}
	var f [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 || len(p) > 2 {
			return 0, fmt.Errorf("bad time %q", s)
		}
		f[i] = v
	}
	if f[1] > 59 || f[2] > 59 {
		return 0, fmt.Errorf("bad time %q", s)
	}
	c := Clock(f[0]*clockHour + f[1]*60 + f[2])
	if c > EndOfDay {
		return 0, fmt.Errorf("time %q is past the end of day", s)
	}
	return c, nil
}

func (c Clock) Hour() int   { return int(c) / clockHour }
func (c Clock) Minute() int { return int(c) % clockHour / 60 }
func (c Clock) Second() int { return int(c) % 60 }

// Add — сдвиг на d с точностью до секунды.
func (c Clock) Add(d time.Duration) Clock {
	return c + Clock(d/time.Second)
}

// Sub — разница c-o.
func (c Clock) Sub(o Clock) time.Duration {
	return time.Duration(c-o) * time.Second
}

func (c Clock) String() string {
	if c.Second() != 0 {
		return fmt.Sprintf("%02d:%02d:%02d", c.Hour(), c.Minute(), c.Second())
	}
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// SQL — формат для параметров TIME.
func (c Clock) SQL() string {
	return fmt.Sprintf("%02d:%02d:%02d", c.Hour(), c.Minute(), c.Second())
}

func (c Clock) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *Clock) UnmarshalText(b []byte) error {
	v, err := ParseClock(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// At — момент времени дня d в зоне loc.
func At(d Date, c Clock, loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, c.Hour(), c.Minute(), c.Second(), 0, loc)
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
