package entity

import (
	"fmt"
	"strconv"
	"time"
)

const (
	serialDayLayout  = "20060102"
	maxDepartmentID  = 99
	maxDailySequence = 99
)

// SerialDay returns the calendar-day key used to scope serial sequences
func SerialDay(t time.Time) string {
	return t.Format(serialDayLayout)
}

// FormatSerialNumber builds YYYYMMDD + 2-digit department + 2-digit sequence
func FormatSerialNumber(t time.Time, departmentID, sequence int) (string, error) {
	if departmentID < 0 || departmentID > maxDepartmentID {
		return "", fmt.Errorf("%w: department id %d out of range", ErrValidation, departmentID)
	}
	if sequence < 1 {
		return "", fmt.Errorf("%w: sequence %d", ErrValidation, sequence)
	}
	if sequence > maxDailySequence {
		return "", fmt.Errorf("%w: department %02d on %s", ErrSerialExhausted, departmentID, SerialDay(t))
	}
	return fmt.Sprintf("%s%02d%02d", SerialDay(t), departmentID, sequence), nil
}

// SerialSequence extracts the per-day sequence from a serial number
func SerialSequence(serial string) (int, error) {
	if len(serial) != len(serialDayLayout)+4 {
		return 0, fmt.Errorf("%w: malformed serial number %q", ErrValidation, serial)
	}
	seq, err := strconv.Atoi(serial[len(serial)-2:])
	if err != nil {
		return 0, fmt.Errorf("%w: malformed serial number %q", ErrValidation, serial)
	}
	return seq, nil
}
