package perfhistory

import (
	"os"
	"time"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"ferrocp/pkg/helper/errors"
)

// stateFileFormatVersion is the current on-disk format version. Loading a
// file written by an incompatible future format is refused rather than
// silently misinterpreted.
const stateFileFormatVersion = "1.0.0"

// stateFileFormatConstraint accepts any 1.x state file; a future 2.x format
// is assumed to have changed field semantics and is rejected.
var stateFileFormatConstraint = mustConstraint("^1.0.0")

func mustConstraint(c string) *semver.Constraints {
	parsed, err := semver.NewConstraint(c)
	if err != nil {
		panic(err)
	}
	return parsed
}

// persistedState is the versioned key-value format from spec §6's
// "Persisted state" section: integer thresholds and a last-updated
// timestamp.
type persistedState struct {
	FormatVersion  string    `yaml:"format_version"`
	MicroThreshold uint64    `yaml:"micro_threshold"`
	SmallThreshold uint64    `yaml:"small_threshold"`
	LastUpdated    time.Time `yaml:"last_updated"`
}

// SaveToFile flushes the current thresholds to path in the versioned YAML
// format, overwriting any existing file. Called after each accepted
// autotune adjustment when the host configures a persistence path.
func (s *State) SaveToFile(path string) error {
	s.mu.RLock()
	state := persistedState{
		FormatVersion:  stateFileFormatVersion,
		MicroThreshold: s.MicroThreshold,
		SmallThreshold: s.SmallThreshold,
		LastUpdated:    time.Now(),
	}
	s.mu.RUnlock()

	data, err := yaml.Marshal(state)
	if err != nil {
		return errors.Wrap(err, "marshal autotuner state")
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.IoFatalf("write autotuner state file %s: %v", path, err)
	}
	return nil
}

// LoadFromFile restores thresholds from a previously persisted state file.
// A missing file is not an error (the state simply starts from defaults);
// a file whose format_version falls outside the accepted range is refused
// with ErrInvalidArgument rather than partially applied.
func (s *State) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.IoFatalf("read autotuner state file %s: %v", path, err)
	}

	var state persistedState
	if err := yaml.Unmarshal(data, &state); err != nil {
		return errors.Wrap(err, "parse autotuner state file")
	}

	version, err := semver.NewVersion(state.FormatVersion)
	if err != nil {
		return errors.InvalidArgumentf("autotuner state file has invalid format_version %q", state.FormatVersion)
	}
	if !stateFileFormatConstraint.Check(version) {
		return errors.InvalidArgumentf("autotuner state file format_version %s is incompatible with this binary", state.FormatVersion)
	}

	s.mu.Lock()
	s.MicroThreshold = state.MicroThreshold
	s.SmallThreshold = state.SmallThreshold
	s.mu.Unlock()
	return nil
}
