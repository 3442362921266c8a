// Package app builds and owns every component of the security subsystem.
package app

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/awnumar/memguard"
	"github.com/jrsteele09/moneyguard/akahu"
	"github.com/jrsteele09/moneyguard/auth"
	"github.com/jrsteele09/moneyguard/biometric"
	"github.com/jrsteele09/moneyguard/biometric/passcode"
	"github.com/jrsteele09/moneyguard/credentials"
	"github.com/jrsteele09/moneyguard/internal/config"
	"github.com/jrsteele09/moneyguard/internal/logging"
	"github.com/jrsteele09/moneyguard/internal/seal"
	"github.com/jrsteele09/moneyguard/oauthflow"
	"github.com/jrsteele09/moneyguard/sessions"
	"github.com/jrsteele09/moneyguard/vault"
	"github.com/jrsteele09/moneyguard/vault/bolt"
	"github.com/rs/zerolog"
	"go.etcd.io/bbolt"
)

// sealInfo is the HKDF context for the vault sealing key.
const sealInfo = "moneyguard vault v1"

// App holds the wired components. Build it with New and release it with Close.
type App struct {
	Config      config.Config
	Logger      zerolog.Logger
	Vault       vault.Vault
	Gate        biometric.Gate
	Sessions    *sessions.Manager
	Credentials *credentials.Store
	Flow        *oauthflow.Flow
	Auth        *auth.Controller
	Akahu       *akahu.Client

	closers []func() error
}

// Options override the defaults New derives from configuration.
type Options struct {
	Vault      vault.Vault      // Defaults to the sealed bbolt vault under the data folder
	Gate       biometric.Gate   // Defaults to the passcode gate reading In
	In         io.Reader        // Passcode input, defaults to os.Stdin
	Out        io.Writer        // Prompt output, defaults to os.Stderr
	LogWriter  io.Writer        // Defaults to os.Stderr
	HTTPClient *http.Client     // Used for both the token exchange and the data API
	NowTime    func() time.Time // Clock shared by sessions, flow and controller
}

// New wires every component from cfg.
func New(cfg config.Config, opts Options) (*App, error) {
	if cfg == nil {
		return nil, errors.New("[app New] config is required")
	}
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stderr
	}
	if opts.LogWriter == nil {
		opts.LogWriter = os.Stderr
	}
	if opts.NowTime == nil {
		opts.NowTime = time.Now
	}

	a := &App{
		Config: cfg,
		Logger: logging.New(cfg.GetLogLevel(), opts.LogWriter),
	}

	a.Vault = opts.Vault
	if a.Vault == nil {
		bv, err := openVault(cfg)
		if err != nil {
			return nil, err
		}
		a.Vault = bv
		a.closers = append(a.closers, bv.Close)
	}

	a.Gate = opts.Gate
	if a.Gate == nil {
		pg, err := passcode.New(cfg.GetPasscodeHash(), opts.In, opts.Out)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("[app New] passcode gate: %w", err)
		}
		a.Gate = pg
	}
	a.Gate = biometric.Cached(a.Gate)

	// Every component that writes the vault shares one writer lock.
	lock := &sync.Mutex{}

	var err error
	a.Sessions, err = sessions.NewManager(a.Vault,
		sessions.WithTimeout(cfg.GetSessionTimeout()),
		sessions.WithNowTime(opts.NowTime),
		sessions.WithLocker(lock),
		sessions.WithLogger(a.component("sessions")),
	)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("[app New] %w", err)
	}

	a.Credentials, err = credentials.NewStore(a.Vault,
		credentials.WithLocker(lock),
		credentials.WithLogger(a.component("credentials")),
	)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("[app New] %w", err)
	}

	flowOpts := []oauthflow.FlowOption{
		oauthflow.WithStateTTL(cfg.GetStateTTL()),
		oauthflow.WithExchangeTimeout(cfg.GetExchangeTimeout()),
		oauthflow.WithNowTime(opts.NowTime),
		oauthflow.WithLocker(lock),
		oauthflow.WithLogger(a.component("oauth")),
	}
	if opts.HTTPClient != nil {
		flowOpts = append(flowOpts, oauthflow.WithHTTPClient(opts.HTTPClient))
	}
	a.Flow, err = oauthflow.NewFlow(oauthflow.Settings{
		ClientID:    cfg.GetClientID(),
		AuthURL:     cfg.GetAuthURL(),
		TokenURL:    cfg.GetTokenURL(),
		RedirectURI: cfg.GetRedirectURI(),
		Scopes:      cfg.GetScopes(),
	}, a.Vault, a.Credentials, flowOpts...)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("[app New] %w", err)
	}

	a.Auth, err = auth.NewController(auth.Deps{
		Vault:       a.Vault,
		Gate:        a.Gate,
		Sessions:    a.Sessions,
		Credentials: a.Credentials,
	},
		auth.WithNowTime(opts.NowTime),
		auth.WithLocker(lock),
		auth.WithLogger(a.component("auth")),
	)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("[app New] %w", err)
	}

	clientOpts := []akahu.ClientOption{
		akahu.WithBaseURL(cfg.GetAPIBaseURL()),
		akahu.WithRateLimit(cfg.GetAPIRateLimit()),
		akahu.WithLogger(a.component("akahu")),
	}
	if opts.HTTPClient != nil {
		clientOpts = append(clientOpts, akahu.WithHTTPClient(opts.HTTPClient))
	}
	a.Akahu, err = akahu.NewClient(a.Credentials, clientOpts...)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("[app New] %w", err)
	}

	return a, nil
}

// Close releases the vault. It is safe to call more than once.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) component(name string) zerolog.Logger {
	return a.Logger.With().Str("component", name).Logger()
}

// openVault loads (or creates) the master key and opens the sealed store.
func openVault(cfg config.Config) (*bolt.Vault, error) {
	master, err := seal.LoadOrCreateKey(cfg.GetKeyFilePath())
	if err != nil {
		return nil, fmt.Errorf("[app New] master key: %w", err)
	}
	sealer, err := seal.New(master, sealInfo)
	memguard.WipeBytes(master)
	if err != nil {
		return nil, fmt.Errorf("[app New] sealer: %w", err)
	}

	v, err := bolt.Open(cfg.GetVaultPath(), sealer, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("[app New] vault: %w", err)
	}
	return v, nil
}
