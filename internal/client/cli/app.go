package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/dmitrijs2005/gofood/internal/client/api"
	"github.com/dmitrijs2005/gofood/internal/client/config"
	"github.com/dmitrijs2005/gofood/internal/client/tokens"
	"github.com/dmitrijs2005/gofood/internal/filex"
	"github.com/dmitrijs2005/gofood/internal/logging"
)

// Exit codes.
const (
	ExitOK             = 0
	ExitError          = 1
	ExitSessionExpired = 2
	ExitUsage          = 64
)

type App struct {
	config *config.Config
	client *api.Client
	closer io.Closer
	reader *bufio.Reader
	out    io.Writer
	errOut io.Writer
	log    logging.Logger
}

// NewApp opens the token database and builds the API client described by c.
func NewApp(ctx context.Context, c *config.Config, in io.Reader, out, errOut io.Writer) (*App, error) {
	log := logging.NewTextLogger(errOut, c.Debug)

	if err := filex.EnsureParentDir(c.TokenDB); err != nil {
		return nil, fmt.Errorf("token store directory: %w", err)
	}
	store, err := tokens.OpenSQLiteStore(ctx, c.TokenDB, []byte(c.TokenPassphrase))
	if err != nil {
		return nil, fmt.Errorf("open token store: %w", err)
	}

	client, err := api.New(api.Options{
		BaseURL:        c.ResolvedBaseURL(),
		Store:          store,
		Logger:         log,
		RequestTimeout: c.RequestTimeout,
		RefreshTimeout: c.RefreshTimeout,
		Debug:          c.Debug,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &App{
		config: c,
		client: client,
		closer: store,
		reader: bufio.NewReader(in),
		out:    out,
		errOut: errOut,
		log:    log,
	}, nil
}

func (a *App) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}
