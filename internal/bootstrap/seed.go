package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/qcom/intake/internal/repository"
	"github.com/qcom/intake/internal/service"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

type seedFile struct {
	Admins []service.CreateAdminInput `yaml:"admins"`
}

// LoadSeedFile reads the admins listed in a YAML file of the form
//
//	admins:
//	  - email: root@example.com
//	    password: change-me-now
//	    name: Root
//	    role: super_admin
func LoadSeedFile(path string) ([]service.CreateAdminInput, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var f seedFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	return f.Admins, nil
}

// SeedAdmins creates every admin from the seed file. Admins that already
// exist are skipped, so seeding is safe to repeat on every start.
func SeedAdmins(ctx context.Context, admins *service.AdminService, path string, logger *logrus.Logger) (int, error) {
	inputs, err := LoadSeedFile(path)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, in := range inputs {
		_, err := admins.CreateAdmin(ctx, in)
		if errors.Is(err, repository.ErrAlreadyExists) {
			logger.WithField("email", in.Email).Debug("Seed admin already exists")
			continue
		}
		if err != nil {
			return created, fmt.Errorf("failed to seed admin %s: %w", in.Email, err)
		}
		created++
	}

	logger.WithFields(logrus.Fields{"file": path, "created": created}).Info("Admin seed applied")
	return created, nil
}
