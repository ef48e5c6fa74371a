package setup

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func managerByName(t *testing.T, name string) *PackageManager {
	t.Helper()

	for i := range managers {
		if managers[i].Name == name {
			return &managers[i]
		}
	}

	t.Fatalf("unknown package manager %q", name)

	return nil
}

func TestInstallArgv(t *testing.T) {
	tests := []struct {
		manager string
		want    string
	}{
		{"apt-get", "apt-get install -y -qq sysbench sysstat"},
		{"dnf", "dnf install -y sysbench sysstat"},
		{"yum", "yum install -y sysbench sysstat"},
		{"pacman", "pacman -S --noconfirm --needed sysbench sysstat"},
	}

	for _, tt := range tests {
		t.Run(tt.manager, func(t *testing.T) {
			pm := managerByName(t, tt.manager)
			argv := installArgv(pm, []string{"sysbench", "sysstat"})
			assert.Equal(t, tt.want, strings.Join(argv, " "))
		})
	}
}

func TestMissingPackages(t *testing.T) {
	t.Run("AllPresent", func(t *testing.T) {
		missing := missingPackages(func(string) (string, error) {
			return "/usr/bin/tool", nil
		})
		assert.Empty(t, missing)
	})

	t.Run("AllMissing", func(t *testing.T) {
		missing := missingPackages(func(string) (string, error) {
			return "", fmt.Errorf("not found")
		})
		assert.Equal(t, []string{"sysbench", "sysstat"}, missing)
	})

	t.Run("OnlySysstatMissing", func(t *testing.T) {
		missing := missingPackages(func(binary string) (string, error) {
			if binary == "sysbench" {
				return "/usr/bin/sysbench", nil
			}

			return "", fmt.Errorf("not found")
		})
		assert.Equal(t, []string{"sysstat"}, missing)
	})
}

func TestDetectErrorNamesManagers(t *testing.T) {
	// Detect depends on the host; only the error shape is portable.
	pm, err := Detect()
	if err != nil {
		require.Nil(t, pm)
		assert.Contains(t, err.Error(), "apt-get")

		return
	}

	assert.NotEmpty(t, pm.Name)
	assert.NotEmpty(t, pm.InstallArgs)
}
