package idnumber

import (
	"errors"
	"fmt"
	"time"
)

// Length is the number of digits in a national identity number.
const Length = 13

type Gender string

const (
	GenderFemale Gender = "female"
	GenderMale   Gender = "male"
)

// Identity holds the facts encoded in a valid national identity number.
type Identity struct {
	DateOfBirth time.Time `json:"dateOfBirth"`
	Gender      Gender    `json:"gender"`
	Citizen     bool      `json:"citizen"`
}

var (
	ErrInvalidLength = errors.New("id number must be 13 digits")
	ErrNotNumeric    = errors.New("id number must contain only digits")
	ErrChecksum      = errors.New("id number checksum mismatch")
	ErrInvalidDate   = errors.New("id number encodes an impossible date")
)

// DecodeError reports why an identity number could not be decoded.
type DecodeError struct {
	ID  string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode id number %q: %v", e.ID, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Validate reports whether id is 13 digits and carries a correct check digit.
func Validate(id string) bool {
	return check(id) == nil
}

// CheckDigit computes the Luhn check digit for a 12-digit payload.
func CheckDigit(payload string) (int, error) {
	if len(payload) != Length-1 {
		return 0, ErrInvalidLength
	}
	if !numeric(payload) {
		return 0, ErrNotNumeric
	}
	return luhn(payload), nil
}

// Decode extracts the birth date, gender and citizenship flag from id,
// inferring the century relative to the current year.
func Decode(id string) (Identity, error) {
	return DecodeAt(id, time.Now())
}

// DecodeAt is Decode with an explicit reference time for century inference.
// A two-digit year at or below the reference's two-digit year is read as
// 20YY, anything above it as 19YY.
func DecodeAt(id string, now time.Time) (Identity, error) {
	if err := check(id); err != nil {
		return Identity{}, &DecodeError{ID: id, Err: err}
	}

	yy := digits(id[0:2])
	century := 1900
	if yy <= now.Year()%100 {
		century = 2000
	}
	y := century + yy
	m := time.Month(digits(id[2:4]))
	d := digits(id[4:6])
	dob := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	if m < time.January || m > time.December || dob.Month() != m || dob.Day() != d {
		return Identity{}, &DecodeError{ID: id, Err: ErrInvalidDate}
	}

	gender := GenderFemale
	if id[6] >= '5' {
		gender = GenderMale
	}

	return Identity{
		DateOfBirth: dob,
		Gender:      gender,
		Citizen:     id[10] == '0',
	}, nil
}

// AgeAt returns the number of whole years between the birth date and t.
func (i Identity) AgeAt(t time.Time) int {
	years := t.Year() - i.DateOfBirth.Year()
	if t.Month() < i.DateOfBirth.Month() ||
		(t.Month() == i.DateOfBirth.Month() && t.Day() < i.DateOfBirth.Day()) {
		years--
	}
	return years
}

func check(id string) error {
	if len(id) != Length {
		return ErrInvalidLength
	}
	if !numeric(id) {
		return ErrNotNumeric
	}
	if luhn(id[:Length-1]) != int(id[Length-1]-'0') {
		return ErrChecksum
	}
	return nil
}

// luhn doubles every second digit starting from the rightmost payload digit.
func luhn(payload string) int {
	sum := 0
	double := true
	for i := len(payload) - 1; i >= 0; i-- {
		n := int(payload[i] - '0')
		if double {
			n *= 2
			if n > 9 {
				n -= 9
			}
		}
		sum += n
		double = !double
	}
	return (10 - sum%10) % 10
}

func numeric(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func digits(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		n = n*10 + int(s[i]-'0')
	}
	return n
}
