package version

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// CheckConfigCompatibility checks that a config written for configVersion can
// be run by an engine at engineVersion.
//
// Rules:
//   - An empty config version, or "main" on either side, skips the check
//   - Major versions must match
//   - The engine must be at least the config version (configs may use options
//     added in later minor releases)
//
// Examples:
//   - Engine 1.2.0, Config 1.2.0 -> OK
//   - Engine 1.4.2, Config 1.2.0 -> OK
//   - Engine 1.1.0, Config 1.2.0 -> ERROR (engine too old)
//   - Engine 2.0.0, Config 1.2.0 -> ERROR (major differs)
func CheckConfigCompatibility(engineVersion, configVersion string) error {
	engineVersion = strings.TrimPrefix(strings.TrimSpace(engineVersion), "v")
	configVersion = strings.TrimPrefix(strings.TrimSpace(configVersion), "v")

	if configVersion == "" || engineVersion == "main" || configVersion == "main" {
		return nil
	}

	engineSemver, err := semver.NewVersion(engineVersion)
	if err != nil {
		return fmt.Errorf("invalid engine version '%s': %w", engineVersion, err)
	}

	configSemver, err := semver.NewVersion(configVersion)
	if err != nil {
		return fmt.Errorf("invalid config version '%s': %w", configVersion, err)
	}

	if engineSemver.Major() != configSemver.Major() {
		return fmt.Errorf("major version mismatch: engine is %d.x.x but config requires %d.x.x",
			engineSemver.Major(), configSemver.Major())
	}

	// compare without prerelease so 1.2.0-rc1 can run a 1.2.0 config
	engineCore := semver.New(engineSemver.Major(), engineSemver.Minor(), engineSemver.Patch(), "", "")
	configCore := semver.New(configSemver.Major(), configSemver.Minor(), configSemver.Patch(), "", "")

	if engineCore.LessThan(configCore) {
		return fmt.Errorf("engine version %s is older than config version %s", engineSemver, configSemver)
	}

	return nil
}
