package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/haukened/popcorn/internal/popcorn/common/clock"
	"github.com/haukened/popcorn/internal/popcorn/common/log"
	"github.com/haukened/popcorn/internal/popcorn/config"
	"github.com/haukened/popcorn/internal/popcorn/domain"
	"github.com/haukened/popcorn/internal/popcorn/gateways/catalog"
	"github.com/haukened/popcorn/internal/popcorn/gateways/page"
	"github.com/haukened/popcorn/internal/popcorn/repos/hostrules"
	"github.com/haukened/popcorn/internal/popcorn/repos/hostrules/bloom"
	"github.com/haukened/popcorn/internal/popcorn/repos/hostrules/bolt"
	"github.com/haukened/popcorn/internal/popcorn/repos/hostrules/lru"
	"github.com/haukened/popcorn/internal/popcorn/repos/kvstore"
	"github.com/haukened/popcorn/internal/popcorn/repos/policy"
	"github.com/haukened/popcorn/internal/popcorn/services/guard"
	"github.com/haukened/popcorn/internal/popcorn/services/matcher"
	"github.com/haukened/popcorn/internal/popcorn/services/watchstate"
)

const (
	version = "0.1.0-dev"
	appName = "popcorn"
)

var errUsage = errors.New("usage")

// Application holds the wired components.
type Application struct {
	config  *config.AppConfig
	clock   clock.Clock
	logger  log.Logger
	policy  domain.Policy
	rules   hostrules.Repository
	matcher *matcher.Matcher
	window  *page.Window
	guard   *guard.Controller
	state   *watchstate.Service
	catalog *catalog.Client
	closers []func() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	err = log.Configure(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Logging configuration error: %v\n", err)
		os.Exit(1)
	}

	log.Debug(map[string]any{
		"version":     version,
		"env":         cfg.Env,
		"page_origin": cfg.PageOrigin,
		"policy_file": cfg.PolicyFile,
		"rules_db":    cfg.RulesDB,
		"state_db":    cfg.StateDB,
	}, "Starting "+appName)

	app, err := buildApplication(cfg)
	if err != nil {
		log.Fatal(map[string]any{"error": err.Error()}, "Failed to build application")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = app.Run(ctx, os.Args[1:], os.Stdin, os.Stdout)
	cancel()
	app.Close()

	if err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, usage)
			os.Exit(2)
		}
		log.Error(map[string]any{"error": err.Error()}, "Command failed")
		os.Exit(1)
	}
}

const usage = `usage: popcorn <command> [args]

commands:
  classify URL...          print the verdict for each URL
  filter                   strip injected ad elements from HTML on stdin
  import-rules FILE...     replace host rules with the given hosts/plain lists
  set-key KEY              store the catalog API key
  trending [movie|tv]      list trending titles through the guarded page
  player movie|tv ID [S E] print the player URL and its verdict`

// buildApplication constructs all components and wires them together.
func buildApplication(cfg *config.AppConfig) (*Application, error) {
	clk := &clock.RealClock{}
	logger := log.GetLogger()
	app := &Application{config: cfg, clock: clk, logger: logger}

	pol, err := policy.Load(cfg.PolicyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load policy: %w", err)
	}
	app.policy = pol

	if err := app.buildRepositories(); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to build repositories: %w", err)
	}

	app.matcher, err = matcher.New(matcher.Options{
		Origin:   cfg.PageOrigin,
		Patterns: pol.Patterns,
		Hosts:    app.rules,
	})
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to build matcher: %w", err)
	}

	app.window, err = page.NewWindow(page.Options{Origin: cfg.PageOrigin, Clock: clk})
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to build page: %w", err)
	}

	app.guard, err = guard.New(guard.Options{
		Window:     app.window,
		Classifier: app.matcher,
		Policy:     pol,
		Logger:     logger,
	})
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to build guard: %w", err)
	}

	app.catalog = catalog.New(catalog.Options{
		BaseURL:       cfg.CatalogBaseURL,
		ImageBaseURL:  cfg.CatalogImageURL,
		PlayerBaseURL: cfg.PlayerBaseURL,
		APIKey:        cfg.CatalogAPIKey,
		HTTPClient:    app.window.HTTPClient(cfg.CatalogTimeout),
		CacheSize:     cfg.CatalogCacheSize,
		CacheTTL:      cfg.CatalogCacheTTL,
		RatePerSecond: cfg.CatalogRate,
		Burst:         cfg.CatalogBurst,
		Logger:        logger,
	})

	log.Info(map[string]any{
		"origin":      app.matcher.Origin(),
		"blocked":     len(pol.Patterns.Blocked()),
		"whitelisted": len(pol.Patterns.Whitelisted()),
		"redirectors": len(pol.Redirectors),
		"keywords":    len(pol.ElementKeywords),
	}, "Guard configured")

	return app, nil
}

// buildRepositories opens the host rule and watch state databases. An empty
// path selects the no-op rule repository or the in-memory state store.
func (app *Application) buildRepositories() error {
	cfg := app.config

	if cfg.RulesDB == "" {
		app.rules = hostrules.NoopRepository{}
		log.Info(map[string]any{"disabled": true}, "Host rules disabled")
	} else {
		if err := os.MkdirAll(filepath.Dir(cfg.RulesDB), 0o755); err != nil {
			return err
		}
		store, err := bolt.New(cfg.RulesDB)
		if err != nil {
			return fmt.Errorf("failed to open host rule store: %w", err)
		}
		app.closers = append(app.closers, store.Close)

		cache, err := lru.New(cfg.RulesCacheSize)
		if err != nil {
			return fmt.Errorf("failed to create host decision cache: %w", err)
		}
		app.rules = hostrules.NewRepository(store, cache, bloom.NewFactory(), cfg.BloomFPRate)

		st := store.Stats()
		log.Info(map[string]any{
			"db":         cfg.RulesDB,
			"exact":      st.ExactKeys,
			"suffix":     st.SuffixKeys,
			"version":    st.Version,
			"cache_size": cfg.RulesCacheSize,
		}, "Host rule store opened")
	}

	var kv kvstore.Store = kvstore.NewMemory()
	if cfg.StateDB != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.StateDB), 0o755); err != nil {
			return err
		}
		var err error
		kv, err = kvstore.Open(cfg.StateDB)
		if err != nil {
			return fmt.Errorf("failed to open state store: %w", err)
		}
		app.closers = append(app.closers, kv.Close)
	}
	app.state = watchstate.New(watchstate.Options{Store: kv, Clock: app.clock, Logger: app.logger})
	return nil
}

// Close releases the databases in reverse order of opening.
func (app *Application) Close() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil {
			log.Warn(map[string]any{"error": err.Error()}, "Error closing store")
		}
	}
	app.closers = nil
}

// Run dispatches one command.
func (app *Application) Run(ctx context.Context, args []string, in io.Reader, out io.Writer) error {
	fs := flag.NewFlagSet(appName, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() == 0 {
		return errUsage
	}
	cmd, rest := fs.Arg(0), fs.Args()[1:]

	switch cmd {
	case "classify":
		return app.classify(rest, out)
	case "filter":
		return app.filter(in, out)
	case "import-rules":
		return app.importRules(rest, out)
	case "set-key":
		if len(rest) != 1 {
			return errUsage
		}
		return app.state.SetAPIKeys(domain.APIKeys{TMDB: rest[0]})
	case "trending":
		return app.trending(ctx, rest, out)
	case "player":
		return app.player(rest, out)
	default:
		return errUsage
	}
}

func (app *Application) classify(urls []string, out io.Writer) error {
	if len(urls) == 0 {
		return errUsage
	}
	for _, u := range urls {
		v := app.matcher.Decide(u)
		if _, err := fmt.Fprintf(out, "%s\t%s\t%s\n", v.Classification, v.Reason, u); err != nil {
			return err
		}
	}
	return nil
}

func (app *Application) filter(in io.Reader, out io.Writer) error {
	n, err := app.guard.Sentinel().FilterHTML(in, out)
	if err != nil {
		return fmt.Errorf("filter: %w", err)
	}
	log.Info(map[string]any{"removed": n}, "Filtered document")
	return nil
}

func (app *Application) importRules(paths []string, out io.Writer) error {
	if len(paths) == 0 {
		return errUsage
	}
	n, err := hostrules.Import(app.rules, paths, app.logger, app.clock)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "imported %d host rules\n", n)
	return err
}

// trending installs the guard for the duration of the request so the
// catalog call goes through the guarded transport.
func (app *Application) trending(ctx context.Context, args []string, out io.Writer) error {
	mt := domain.MediaMovie
	if len(args) > 0 {
		var err error
		if mt, err = domain.ParseMediaType(args[0]); err != nil {
			return err
		}
	}
	if app.config.CatalogAPIKey == "" {
		key, err := app.state.CatalogKey()
		if err != nil {
			return err
		}
		if key == "" {
			return catalog.ErrMissingAPIKey
		}
		app.catalog.SetAPIKey(key)
	}

	if _, err := app.guard.Install(); err != nil {
		return err
	}
	defer app.guard.Uninstall()

	titles, err := app.catalog.Trending(ctx, mt)
	if err != nil {
		return err
	}
	for _, t := range titles {
		if _, err := fmt.Fprintf(out, "%d\t%s\t%s\n", t.ID, t.ReleaseYear(), t.DisplayTitle()); err != nil {
			return err
		}
	}
	return nil
}

func (app *Application) player(args []string, out io.Writer) error {
	if len(args) != 2 && len(args) != 4 {
		return errUsage
	}
	mt, err := domain.ParseMediaType(args[0])
	if err != nil {
		return err
	}
	nums := make([]int, 0, 3)
	for _, a := range args[1:] {
		n, err := strconv.Atoi(a)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid number %q", a)
		}
		nums = append(nums, n)
	}
	season, episode := 1, 1
	if len(nums) == 3 {
		season, episode = nums[1], nums[2]
	}
	u := app.catalog.PlayerURL(mt, nums[0], season, episode)
	v := app.matcher.Decide(u)
	_, err = fmt.Fprintf(out, "%s\t%s\t%s\n", v.Classification, v.Reason, u)
	return err
}
