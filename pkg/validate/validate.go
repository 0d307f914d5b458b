// Package validate holds form-boundary validation helpers. Validation failures
// here never reach the network layer.
package validate

import "regexp"

var (
	plateRe = regexp.MustCompile(`^[A-Z]{3}-?[0-9]{3,4}$`)
	emailRe = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

// Cedula reports whether s is a valid 10-digit national identification
// number. The first two digits are the province code (01-24), the third
// digit must be below 6 for natural persons, and the tenth digit is a
// module-10 check digit over the first nine with alternating 2/1 weights.
func Cedula(s string) bool {
	if len(s) != 10 {
		return false
	}
	digits := make([]int, 10)
	for i, r := range s {
		if r < '0' || r > '9' {
			return false
		}
		digits[i] = int(r - '0')
	}

	province := digits[0]*10 + digits[1]
	if province < 1 || province > 24 {
		return false
	}
	if digits[2] >= 6 {
		return false
	}

	sum := 0
	for i := 0; i < 9; i++ {
		d := digits[i]
		if i%2 == 0 {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
	}
	check := (10 - sum%10) % 10
	return check == digits[9]
}

// Plate reports whether s looks like a vehicle plate (three letters followed
// by three or four digits, with an optional dash).
func Plate(s string) bool {
	return plateRe.MatchString(s)
}

// Email reports whether s looks like an email address.
func Email(s string) bool {
	return emailRe.MatchString(s)
}
