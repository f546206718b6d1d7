package types

import (
	"fmt"
	"slices"
	"strings"
)

// Modality is one of the supported authentication methods.
type Modality string

const (
	ModalityFace        Modality = "face"
	ModalityRFID        Modality = "rfid"
	ModalityFingerprint Modality = "fingerprint"
)

// Modalities lists every modality in tab order.
var Modalities = []Modality{ModalityFace, ModalityRFID, ModalityFingerprint}

func ParseModality(s string) (Modality, error) {
	m := Modality(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case ModalityFace, ModalityRFID, ModalityFingerprint:
		return m, nil
	}
	return "", fmt.Errorf("unknown modality %q", s)
}

func (m Modality) Label() string {
	switch m {
	case ModalityFace:
		return "Face ID"
	case ModalityRFID:
		return "RFID"
	case ModalityFingerprint:
		return "Fingerprint"
	}
	return string(m)
}

type Status string

const (
	StatusActive   Status = "Active"
	StatusInactive Status = "Inactive"
)

// Role choices offered by the registration forms; the edit modal offers EditRoles.
var (
	RegistrationRoles = []string{"Student", "Lecturer", "Admin"}
	EditRoles         = []string{"Student", "Faculty", "Staff", "Lecturer", "Admin"}
)

const DefaultRole = "Student"

// User is a roster entry.  IDNumber is the external ID and acts as the
// natural key; ID is the internal display identifier.
type User struct {
	ID           string     `json:"id" yaml:"id"`
	FullName     string     `json:"fullName" yaml:"fullName"`
	IDNumber     string     `json:"idNumber" yaml:"idNumber"`
	Role         string     `json:"role" yaml:"role"`
	AuthMethods  []Modality `json:"authMethods" yaml:"authMethods"`
	Status       Status     `json:"status" yaml:"status"`
	RegisteredAt string     `json:"registeredAt" yaml:"registeredAt"` // YYYY-MM-DD
}

func (u User) HasMethod(m Modality) bool {
	return slices.Contains(u.AuthMethods, m)
}

// WithMethod appends m to the method set unless it is already present.
func (u *User) WithMethod(m Modality) bool {
	if u.HasMethod(m) {
		return false
	}
	u.AuthMethods = append(u.AuthMethods, m)
	return true
}

// NormalizeMethods rebuilds the method set from its canonical tags, keeping
// first-seen order and dropping repeats. Unknown tags are an error.
func (u *User) NormalizeMethods() error {
	raw := u.AuthMethods
	u.AuthMethods = make([]Modality, 0, len(raw))
	for _, r := range raw {
		m, err := ParseModality(string(r))
		if err != nil {
			return err
		}
		u.WithMethod(m)
	}
	return nil
}

// ToggleMethod removes m if present, otherwise appends it.
func (u *User) ToggleMethod(m Modality) {
	if i := slices.Index(u.AuthMethods, m); i >= 0 {
		u.AuthMethods = slices.Delete(u.AuthMethods, i, i+1)
		return
	}
	u.AuthMethods = append(u.AuthMethods, m)
}

func (u User) Clone() User {
	u.AuthMethods = slices.Clone(u.AuthMethods)
	return u
}

// RegistrationForm is what the registration tabs submit.
type RegistrationForm struct {
	FullName string `json:"fullName"`
	IDNumber string `json:"idNumber"`
	Role     string `json:"role"`
}

func (f RegistrationForm) Normalize() RegistrationForm {
	f.FullName = strings.TrimSpace(f.FullName)
	f.IDNumber = strings.TrimSpace(f.IDNumber)
	if strings.TrimSpace(f.Role) == "" {
		f.Role = DefaultRole
	}
	return f
}

// RegistrationResult is returned once a simulated scan settles.
type RegistrationResult struct {
	Modality Modality `json:"modality"`
	User     User     `json:"user"`
	Created  bool     `json:"created"`
	RFIDUID  string   `json:"rfidUid,omitempty"`
}
