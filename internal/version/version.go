package version

import (
	"github.com/Masterminds/semver/v3"

	"github.com/ProjectTradeAI/agentrader/pkg/errors"
)

// ResultSchemaVersion is stamped into every BacktestResult. Consumers refuse
// files whose major version differs from their own.
const ResultSchemaVersion = "1.0.0"

// CheckResultSchema verifies that a result file's schema version can be read
// by this build. Minor and patch drift is tolerated; a major mismatch is not.
func CheckResultSchema(fileVersion string) error {
	current, err := semver.NewVersion(ResultSchemaVersion)
	if err != nil {
		return errors.Wrap(errors.ErrCodeVersionMismatch, "invalid built-in schema version", err)
	}

	parsed, err := semver.NewVersion(fileVersion)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeVersionMismatch, err, "invalid result schema version %q", fileVersion)
	}

	if parsed.Major() != current.Major() {
		return errors.Newf(errors.ErrCodeVersionMismatch,
			"result schema version %s is incompatible with %s", fileVersion, ResultSchemaVersion)
	}

	return nil
}
