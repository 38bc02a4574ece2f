package util

import (
	"regexp"
	"strings"
)

var (
	nonDigits = regexp.MustCompile(`\D+`)
	mobileRe  = regexp.MustCompile(`^[6-9]\d{9}$`)
	panRe     = regexp.MustCompile(`^[A-Z]{5}[0-9]{4}[A-Z]$`)
	ifscRe    = regexp.MustCompile(`^[A-Z]{4}0[A-Z0-9]{6}$`)
	fssaiRe   = regexp.MustCompile(`^\d{14}$`)
	emailRe   = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// NormalizeMobile reduces Indian mobile input to its 10 national digits.
// "+91 98765-43210", "09876543210" and "919876543210" all become "9876543210".
func NormalizeMobile(raw string) string {
	s := nonDigits.ReplaceAllString(strings.TrimSpace(raw), "")

	switch {
	case len(s) == 12 && strings.HasPrefix(s, "91"):
		s = s[2:]
	case len(s) == 11 && strings.HasPrefix(s, "0"):
		s = s[1:]
	}

	return s
}

// ValidMobile expects the output of NormalizeMobile.
func ValidMobile(s string) bool { return mobileRe.MatchString(s) }

// TenDigits is the looser check the vendors apply to mobile numbers.
func TenDigits(s string) bool { return len(s) == 10 && nonDigits.FindStringIndex(s) == nil }

// NormalizePAN uppercases and strips whitespace.
func NormalizePAN(raw string) string {
	return strings.ToUpper(strings.Join(strings.Fields(raw), ""))
}

func ValidPAN(s string) bool { return panRe.MatchString(s) }

func NormalizeIFSC(raw string) string { return strings.ToUpper(strings.TrimSpace(raw)) }

func ValidIFSC(s string) bool { return ifscRe.MatchString(s) }

// NormalizeFSSAI drops a two-letter state prefix some licences are written with.
func NormalizeFSSAI(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if len(s) > 2 && s[0] >= 'A' && s[0] <= 'Z' && s[1] >= 'A' && s[1] <= 'Z' {
		s = s[2:]
	}
	return s
}

func ValidFSSAI(s string) bool { return fssaiRe.MatchString(s) }

func NormalizeEmail(raw string) string { return strings.ToLower(strings.TrimSpace(raw)) }

func ValidEmail(s string) bool { return emailRe.MatchString(s) }

// IsEmail decides whether a login identifier is an email or a mobile number.
func IsEmail(identifier string) bool { return strings.Contains(identifier, "@") }
