package installer

import (
	"context"
	"fmt"
	"strings"

	"github.com/juagargi/scion-box/internal/ap/config"
	"github.com/juagargi/scion-box/internal/ap/openvpn"
	"github.com/juagargi/scion-box/internal/ap/pkgmgr"
	"github.com/juagargi/scion-box/internal/ap/state"
	"github.com/juagargi/scion-box/internal/ap/sysctl"
	"github.com/juagargi/scion-box/internal/ap/systemd"
	"github.com/juagargi/scion-box/internal/ap/updater"
)

// Step names, in execution order
const (
	StepUpdaterRuntime  = "updater-runtime"
	StepOpenVPNPackage  = "openvpn-package"
	StepServerConfig    = "server-config"
	StepCertificates    = "certificates"
	StepClientConfigDir = "client-config-dir"
	StepIPForwarding    = "ip-forwarding"
	StepVPNService      = "vpn-service"
	StepIdentityState   = "identity-state"
	StepUpdaterFiles    = "updater-files"
	StepPeriodicJob     = "periodic-job"
)

// OpenVPNPackage is the distribution package providing the VPN daemon
const OpenVPNPackage = "openvpn"

type stepDeps struct {
	params     *config.Params
	paths      config.Paths
	apt        *pkgmgr.Apt
	state      *state.Store
	stager     *updater.Stager
	sysd       *systemd.Manager // nil in container mode
	pythonPath string           // resolved runtime, empty in container mode
}

// buildSteps assembles the provisioning sequence for the given mode
func buildSteps(d stepDeps) []Step {
	steps := []Step{
		NewStep(StepUpdaterRuntime, func(ctx context.Context) (Outcome, error) {
			if err := d.apt.InstallPipRequirements(ctx, d.paths.Requirements()); err != nil {
				return Outcome{}, err
			}
			return Outcome{Detail: "runtime requirements ensured"}, nil
		}),
	}

	if d.params.VPNRequired() {
		steps = append(steps,
			NewStep(StepOpenVPNPackage, func(ctx context.Context) (Outcome, error) {
				changed, err := d.apt.EnsureInstalled(ctx, OpenVPNPackage)
				if err != nil {
					return Outcome{}, err
				}
				if !changed {
					return Outcome{Detail: "already installed"}, nil
				}
				return Outcome{Changed: true, Detail: "installed " + OpenVPNPackage}, nil
			}),
			NewStep(StepServerConfig, func(ctx context.Context) (Outcome, error) {
				target, err := openvpn.InstallServerConfig(
					d.paths.ServerTemplate(),
					d.paths.OpenVPNDir,
					openvpn.ServerData{
						Port:        d.params.Port,
						ServiceName: d.params.ServiceName,
						ASName:      d.params.IA,
						Network:     d.params.Network,
						Netmask:     d.params.Netmask,
						User:        d.params.User,
					})
				if err != nil {
					return Outcome{}, err
				}
				return Outcome{Changed: true, Detail: target}, nil
			}),
			NewStep(StepCertificates, func(ctx context.Context) (Outcome, error) {
				err := openvpn.CopyCertBundle(d.paths.InputDir, d.paths.OpenVPNDir, config.CertBundleFiles)
				if err != nil {
					return Outcome{}, err
				}
				return Outcome{Changed: true, Detail: strings.Join(config.CertBundleFiles, ", ")}, nil
			}),
			NewStep(StepClientConfigDir, func(ctx context.Context) (Outcome, error) {
				created, err := openvpn.EnsureClientConfigDir(d.paths.ClientConfigDir)
				if err != nil {
					return Outcome{}, err
				}
				return Outcome{Changed: created, Detail: d.paths.ClientConfigDir}, nil
			}),
			NewStep(StepIPForwarding, func(ctx context.Context) (Outcome, error) {
				changed, err := sysctl.EnableIPForwarding(d.paths.SysctlConf)
				if err != nil {
					return Outcome{}, err
				}
				if !changed {
					return Outcome{Detail: "already enabled or not present"}, nil
				}
				return Outcome{Changed: true, Detail: "uncommented net.ipv4.ip_forward"}, nil
			}),
			NewStep(StepVPNService, func(ctx context.Context) (Outcome, error) {
				unit := d.params.VPNServiceUnit()
				if err := d.sysd.RestartService(ctx, unit); err != nil {
					return Outcome{}, err
				}
				if err := d.sysd.EnableService(ctx, unit); err != nil {
					return Outcome{}, err
				}
				return Outcome{Changed: true, Detail: unit + " restarted and enabled"}, nil
			}),
		)
	}

	steps = append(steps,
		NewStep(StepIdentityState, func(ctx context.Context) (Outcome, error) {
			written, err := d.state.PersistIdentity(d.params.IA, d.params.AccountID, d.params.AccountSecret)
			if err != nil {
				return Outcome{}, err
			}
			if len(written) == 0 {
				return Outcome{Detail: "identity already persisted"}, nil
			}
			return Outcome{Changed: true, Detail: "wrote " + strings.Join(written, ", ")}, nil
		}),
		NewStep(StepUpdaterFiles, func(ctx context.Context) (Outcome, error) {
			changed, err := d.stager.Stage(d.paths.UpdaterFiles())
			if err != nil {
				return Outcome{}, err
			}
			return Outcome{Changed: changed, Detail: d.paths.BinDir}, nil
		}),
	)

	if !d.params.Container {
		steps = append(steps,
			NewStep(StepPeriodicJob, func(ctx context.Context) (Outcome, error) {
				removed := d.sysd.RemoveLegacyJob(ctx, config.LegacyUpdaterUnit)

				installed, err := d.sysd.InstallUnits(d.paths.UnitTemplates(), systemd.UnitData{
					User:    d.params.User,
					BinPath: d.pythonPath,
				})
				if err != nil {
					return Outcome{}, err
				}
				if err := d.sysd.Reload(ctx); err != nil {
					return Outcome{}, err
				}
				if err := d.sysd.EnableAndStartTimer(ctx, config.UpdaterUnitBase); err != nil {
					return Outcome{}, err
				}

				detail := fmt.Sprintf("installed %s", strings.Join(installed, ", "))
				if removed {
					detail += "; removed legacy " + config.LegacyUpdaterUnit
				}
				return Outcome{Changed: true, Detail: detail}, nil
			}),
		)
	}

	return steps
}
