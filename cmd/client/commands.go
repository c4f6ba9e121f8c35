package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/atinyakov/JobBoard/internal/client/storage"
	"github.com/atinyakov/JobBoard/internal/config"
	"github.com/atinyakov/JobBoard/internal/models"
	"github.com/atinyakov/JobBoard/internal/service"
	"github.com/cockroachdb/errors"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// cli holds the app shared by all subcommands of one root command.
type cli struct {
	app *app
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "jobboard",
		Short: "Browse job postings and apply from the terminal",
		Long: `jobboard talks to the job board content backend.

Examples:
  jobboard jobs golang --location Berlin   # Search postings
  jobboard job 12                          # Show one posting
  jobboard apply 12                        # Apply, logging in if needed
  jobboard applications                    # Track your applications`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			c.app = a
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if c.app != nil {
				_ = c.app.log.Sync()
			}
		},
	}
	config.AddClientFlags(root.PersistentFlags())

	root.AddCommand(
		c.loginCmd(),
		c.registerCmd(),
		c.logoutCmd(),
		c.whoamiCmd(),
		c.jobsCmd(),
		c.jobCmd(),
		c.filtersCmd(),
		c.applyCmd(),
		c.applicationsCmd(),
		versionCmd(),
	)
	return root
}

func (c *cli) loginCmd() *cobra.Command {
	var identifier string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in with email or username",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.login(cmd, identifier)
		},
	}
	cmd.Flags().StringVarP(&identifier, "identifier", "u", "", "email or username")
	return cmd
}

func (c *cli) login(cmd *cobra.Command, identifier string) error {
	a := c.app
	identifier, password, err := a.prompter.Credentials(identifier, "")
	if err != nil {
		return err
	}
	if identifier == "" || password == "" {
		return errors.New("email or username and password are required")
	}
	if err := a.sess.Login(cmd.Context(), identifier, password); err != nil {
		return err
	}
	pterm.Success.WithWriter(a.out).Printfln("Logged in as %s", displayName(a.sess.State().User, identifier))
	return nil
}

func (c *cli) registerCmd() *cobra.Command {
	var username, email string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := c.app
			var err error
			if username, err = a.prompter.Ask("Username", username); err != nil {
				return err
			}
			if email, err = a.prompter.Ask("Email", email); err != nil {
				return err
			}
			password, err := a.prompter.Secret("Password", "")
			if err != nil {
				return err
			}
			if username == "" || email == "" || password == "" {
				return errors.New("username, email and password are required")
			}
			if err := a.sess.Register(cmd.Context(), username, email, password); err != nil {
				return err
			}
			pterm.Success.WithWriter(a.out).Printfln("Account created. Logged in as %s", displayName(a.sess.State().User, username))
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "account username")
	cmd.Flags().StringVar(&email, "email", "", "account email")
	return cmd
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			a := c.app
			if err := a.sess.Logout(); err != nil {
				return errors.Wrap(err, "clear saved session")
			}
			pterm.Success.WithWriter(a.out).Println("Logged out")
			return nil
		},
	}
}

func (c *cli) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			a := c.app
			st := a.sess.State()
			if !st.Authenticated() {
				pterm.Info.WithWriter(a.out).Println("Not logged in")
				return nil
			}
			exp, ok := a.sess.TokenExpiry()
			return renderSession(a.out, st.User, a.store.Path(), exp, ok)
		},
	}
}

func (c *cli) jobsCmd() *cobra.Command {
	var f models.Filters
	cmd := &cobra.Command{
		Use:   "jobs [query]",
		Short: "List job postings",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f.Query = strings.Join(args, " ")
			jobs, err := c.app.catalog.List(cmd.Context(), f)
			if err != nil {
				return err
			}
			return renderJobs(c.app.out, jobs)
		},
	}
	cmd.Flags().StringVar(&f.Level, "level", "", "only this level")
	cmd.Flags().StringVar(&f.Location, "location", "", "only this location")
	cmd.Flags().StringVar(&f.Field, "field", "", "only this field")
	return cmd
}

func (c *cli) jobCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "job <id>",
		Short: "Show one job posting by id or document id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := c.app.catalog.Detail(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return renderJob(c.app.out, job)
		},
	}
}

func (c *cli) filtersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "filters",
		Short: "List the levels, locations and fields to filter by",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := c.app.catalog.FilterOptions(cmd.Context())
			if err != nil {
				return err
			}
			return renderFilters(c.app.out, opts)
		},
	}
}

func (c *cli) applyCmd() *cobra.Command {
	var form storage.ApplicationForm
	cmd := &cobra.Command{
		Use:   "apply <job-id>",
		Short: "Apply to a job posting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := c.app
			ctx := cmd.Context()

			jobID, title, err := c.resolveJob(cmd, args[0])
			if err != nil {
				return err
			}

			var app models.Application
			submit := func() error {
				filled, err := a.prompter.Application(form)
				if err != nil {
					return err
				}
				form = filled
				app, err = a.apps.Submit(ctx, a.sess, jobID, service.ApplicationInput{
					Name:  form.Name,
					Email: form.Email,
					Phone: form.Phone,
				})
				return err
			}

			err = submit()
			if errors.Is(err, models.ErrLoginRequired) && a.sess.State().LoginPromptVisible {
				pterm.Warning.WithWriter(a.errOut).Println("Log in to apply")
				if err := c.login(cmd, ""); err != nil {
					a.sess.CloseLoginPrompt()
					return err
				}
				err = submit()
			}
			if err != nil {
				return err
			}

			if title == "" && app.Job.Title != models.UnknownTitle {
				title = app.Job.Title
			}
			if title == "" {
				title = "job " + strconv.FormatInt(jobID, 10)
			}
			pterm.Success.WithWriter(a.out).Printfln("Applied to %s (application %d, %s)", title, app.ID, app.Status)
			return nil
		},
	}
	cmd.Flags().StringVar(&form.Name, "name", "", "your full name")
	cmd.Flags().StringVar(&form.Email, "email", "", "your email")
	cmd.Flags().StringVar(&form.Phone, "phone", "", "your phone number (digits)")
	return cmd
}

// resolveJob turns a numeric id or a document id into the numeric id the
// backend relates applications by.
func (c *cli) resolveJob(cmd *cobra.Command, ident string) (int64, string, error) {
	if id, err := strconv.ParseInt(ident, 10, 64); err == nil {
		return id, "", nil
	}
	job, err := c.app.catalog.Detail(cmd.Context(), ident)
	if err != nil {
		return 0, "", err
	}
	return job.ID, job.Title, nil
}

func (c *cli) applicationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "applications",
		Short: "List your applications and their status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := c.app
			apps, err := a.apps.Mine(cmd.Context(), a.sess)
			if errors.Is(err, models.ErrLoginRequired) {
				a.sess.CloseLoginPrompt()
			}
			if err != nil {
				return err
			}
			return renderApplications(a.out, apps)
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show build version and date",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "JobBoard Client\nVersion: %s\nBuild Date: %s\n",
				orNA(version), orNA(buildDate))
		},
	}
}

func displayName(u *models.User, fallback string) string {
	if u == nil {
		return fallback
	}
	if u.Username != "" {
		return u.Username
	}
	if u.Email != "" {
		return u.Email
	}
	return fallback
}
