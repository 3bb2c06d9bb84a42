package cli

import (
	"github.com/shinji-kodama/coredeck/internal/api"
	"github.com/shinji-kodama/coredeck/internal/config"
	"github.com/shinji-kodama/coredeck/internal/controller"
	"github.com/shinji-kodama/coredeck/internal/model"
	"github.com/shinji-kodama/coredeck/internal/port"
)

// session bundles what every backend-facing command needs.
type session struct {
	cfg    *config.Config
	client *api.Client
}

// openSession loads the settings, applies --api and builds the backend
// client.
func openSession() (*session, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitGeneralError, "failed to load settings", err)
	}
	if cfg.Path != "" {
		VerboseLog("Loaded settings from %s", cfg.Path)
	}
	if apiOrigin != "" {
		cfg.API = apiOrigin
	}

	timeout, err := cfg.Timeout()
	if err != nil {
		return nil, model.WrapCLIError(model.ExitGeneralError, "invalid settings", err)
	}
	client, err := api.NewClient(cfg.API, api.WithTimeout(timeout))
	if err != nil {
		return nil, model.WrapCLIError(model.ExitGeneralError, "invalid backend origin", err)
	}
	VerboseLog("Using backend %s", client.Origin())

	return &session{cfg: cfg, client: client}, nil
}

// controller builds a Controller over the session's client. checkPorts
// makes Start refuse host ports already bound on this machine.
func (s *session) controller(checkPorts bool) *controller.Controller {
	opts := controller.Options{
		UploadRoot:    s.cfg.UploadRoot,
		Image:         s.cfg.Image,
		PluginDir:     s.cfg.PluginDir,
		FrontHostPort: s.cfg.FrontHostPort,
		BackHostPort:  s.cfg.BackHostPort,
	}
	if checkPorts {
		opts.PortChecker = port.NewAllocator(port.NewScanner())
	}
	return controller.New(s.client, opts)
}
