package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/BrandonDHaskell/Portunus/labconsole/internal/lab/types"
)

type rosterSeedFile struct {
	Users []types.User `yaml:"users"`
}

// LoadRosterSeed reads a YAML roster seed:
//
//	users:
//	  - id: "1001"
//	    fullName: John Doe
//	    idNumber: STU001
//	    role: Lecturer
//	    authMethods: [face, rfid]
//	    status: Active
//	    registeredAt: "2024-01-15"
func LoadRosterSeed(path string) ([]types.User, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster seed: %w", err)
	}
	var f rosterSeedFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse roster seed %s: %w", path, err)
	}
	for i, u := range f.Users {
		if u.ID == "" || u.IDNumber == "" {
			return nil, fmt.Errorf("roster seed %s: user %d needs id and idNumber", path, i)
		}
		if u.Status == "" {
			f.Users[i].Status = types.StatusActive
		}
		if err := f.Users[i].NormalizeMethods(); err != nil {
			return nil, fmt.Errorf("roster seed %s: user %s: %w", path, u.ID, err)
		}
	}
	return f.Users, nil
}
