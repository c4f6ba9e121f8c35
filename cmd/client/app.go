package main

import (
	"io"

	"github.com/atinyakov/JobBoard/internal/client/storage"
	"github.com/atinyakov/JobBoard/internal/config"
	"github.com/atinyakov/JobBoard/internal/contentapi"
	"github.com/atinyakov/JobBoard/internal/logger"
	"github.com/atinyakov/JobBoard/internal/service"
	"github.com/atinyakov/JobBoard/internal/session"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app is everything a command needs, built once per invocation.
type app struct {
	opts     *config.Options
	log      *zap.Logger
	api      *contentapi.Client
	store    *storage.LocalStorage
	sess     *session.Manager
	catalog  *service.Catalog
	apps     *service.Applications
	prompter *storage.Prompter

	out    io.Writer
	errOut io.Writer
}

func newApp(cmd *cobra.Command) (*app, error) {
	v, err := config.New(cmd.Flags())
	if err != nil {
		return nil, err
	}
	opts, err := config.Load(v)
	if err != nil {
		return nil, err
	}

	lg := logger.New()
	if err := lg.InitConsole(opts.LogLevel); err != nil {
		return nil, err
	}
	log := lg.Log

	httpClient, err := contentapi.NewHTTPClient(opts.APICAFile, opts.RequestTimeout)
	if err != nil {
		return nil, err
	}
	api := contentapi.NewClient(contentapi.Config{
		BaseURL:    opts.APIURL,
		HTTPClient: httpClient,
		RateLimit:  opts.RateLimit,
		Logger:     log.Named("contentapi"),
	})

	store, err := storage.Open(opts.SessionFile)
	if err != nil {
		return nil, err
	}
	sess, err := session.New(api, store, log.Named("session"))
	if err != nil {
		return nil, err
	}
	sess.Subscribe(func(st session.State) {
		log.Debug("session changed",
			zap.Bool("authenticated", st.Authenticated()),
			zap.Bool("login_prompt", st.LoginPromptVisible))
	})

	return &app{
		opts:     opts,
		log:      log,
		api:      api,
		store:    store,
		sess:     sess,
		catalog:  service.NewCatalog(api, log.Named("catalog")),
		apps:     service.NewApplications(api, log.Named("applications")),
		prompter: storage.NewPrompter(cmd.InOrStdin(), cmd.ErrOrStderr()),
		out:      cmd.OutOrStdout(),
		errOut:   cmd.ErrOrStderr(),
	}, nil
}
