package installer

import (
	"os"

	"github.com/juagargi/scion-box/internal/ap/config"
	sharederrors "github.com/juagargi/scion-box/internal/shared/errors"
)

// MissingInputs returns every required input file that is absent, in the
// order the installation would need them. Which files are required depends
// on the mode: the certificate bundle and server template only matter when
// the VPN is installed, the unit templates only outside containers.
func MissingInputs(paths config.Paths, params *config.Params) []string {
	var required []string

	if params.VPNRequired() {
		required = append(required, paths.ServerTemplate())
		required = append(required, paths.CertBundle()...)
	}

	required = append(required, paths.UpdaterFiles()...)
	required = append(required, paths.Requirements())

	if !params.Container {
		required = append(required, paths.UnitTemplates()...)
	}

	var missing []string
	for _, path := range required {
		if _, err := os.Stat(path); err != nil {
			missing = append(missing, path)
		}
	}

	return missing
}

// Preflight fails with the complete list of missing input files before any
// mutation happens.
func Preflight(paths config.Paths, params *config.Params) error {
	if missing := MissingInputs(paths, params); len(missing) > 0 {
		return sharederrors.NewPreconditionError(missing)
	}
	return nil
}
