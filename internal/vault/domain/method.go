package domain

import (
	"errors"
	"strings"
)

// Method names an authentication factor a user can present.
type Method string

const (
	MethodNone             Method = ""
	MethodPassword         Method = "password"
	MethodPIN              Method = "pin"
	MethodPattern          Method = "pattern"
	MethodBiometric        Method = "biometric"
	MethodSecurityQuestion Method = "security-question"
)

var ErrUnknownMethod = errors.New("unknown authentication method")

// PrimaryMethods are mutually exclusive: at most one is enabled at a time.
var PrimaryMethods = []Method{MethodPassword, MethodPIN, MethodPattern}

// ParseMethod accepts the wire names above, case-insensitively.
func ParseMethod(s string) (Method, error) {
	switch m := Method(strings.ToLower(strings.TrimSpace(s))); m {
	case MethodPassword, MethodPIN, MethodPattern, MethodBiometric, MethodSecurityQuestion:
		return m, nil
	}
	return MethodNone, ErrUnknownMethod
}

// IsPrimary reports whether m is one of password, pin or pattern.
func (m Method) IsPrimary() bool {
	return m == MethodPassword || m == MethodPIN || m == MethodPattern
}

func (m Method) String() string { return string(m) }
