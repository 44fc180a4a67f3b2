package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lunastream/internal/localstore"
	"github.com/desertthunder/lunastream/internal/services"
	"github.com/desertthunder/lunastream/internal/shared"
	"github.com/desertthunder/lunastream/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	metadata   services.Metadata
	anime      services.Anime
	sports     services.Sports
	api        *services.APIService
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	deviceDir  string
	open       func(string) error
	now        func() time.Time

	catalog  *tasks.CatalogEngine
	progress *tasks.ProgressEngine
	settings *localstore.SettingsService
	session  *localstore.Session
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Metadata   services.Metadata
	Anime      services.Anime
	Sports     services.Sports
	API        *services.APIService
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	DeviceDir  string             // Overrides config.Device.Dir
	Open       func(string) error // Opens a URL; defaults to [shared.OpenBrowser]
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Open == nil {
		opts.Open = shared.OpenBrowser
	}
	if opts.DeviceDir != "" {
		opts.Config.Device.Dir = opts.DeviceDir
	}
	deviceDir, err := opts.Config.Device.ResolveDir()
	if err != nil {
		opts.Logger.Warn("failed to resolve device directory, using working directory", "error", err)
		deviceDir = "."
		opts.Config.Device.Dir = deviceDir
	}

	r := &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		metadata:   opts.Metadata,
		anime:      opts.Anime,
		sports:     opts.Sports,
		api:        opts.API,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		deviceDir:  deviceDir,
		open:       opts.Open,
		now:        time.Now,
	}
	r.restoreSession()
	r.wire()
	return r
}

// wire builds the engines from the runner's services.
//
// The progress engine reads the device store until a session signs it in.
func (r *Runner) wire() {
	r.catalog = tasks.NewCatalogEngine(r.metadata, r.anime, r.logger)
	r.progress = tasks.NewProgressEngine(localstore.NewProgressStore(r.deviceDir), r.logger)
	r.settings = localstore.NewSettingsService(r.deviceDir)
	if r.session != nil && r.api != nil {
		r.progress.SignIn(r.api.Progress())
	}
}

// restoreSession loads an unexpired saved session and authenticates the API client with it.
func (r *Runner) restoreSession() {
	if r.api == nil {
		return
	}

	path, err := r.config.ResolveTokenPath()
	if err != nil {
		r.logger.Warn("failed to resolve token path", "error", err)
		return
	}
	session, err := localstore.LoadSession(path)
	switch {
	case err != nil:
		r.logger.Warn("ignoring unreadable session", "path", path, "error", err)
		return
	case session == nil:
		return
	case session.Expired(r.now()):
		r.logger.Debug("saved session expired, using device progress", "expiry", session.Expiry)
		return
	}

	r.session = session
	r.api = r.api.WithToken(session.IDToken)
	r.logger.Debug("restored session", "subject", session.Subject)
}

// SetLogger replaces the logger and rebuilds the engines that captured the old one.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
	r.wire()
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, dbCommand, serveCommand, authCommand,
		progressCommand, searchCommand, browseCommand, movieCommand, tvCommand, seasonCommand, animeCommand, personCommand, homeCommand,
		sportsCommand, playCommand, playersCommand, settingsCommand,
		notificationsCommand, adminCommand, statsCommand, apiCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
